package fscontext

import (
	"errors"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS(created *Params) FSType {
	return FSType{
		Name: "testfs",
		ParseOption: func(opt Option) error {
			if opt.Key == "bogus" {
				return errors.New("unknown option")
			}
			return nil
		},
		GetTree: func(p Params) error {
			if p.Source == "" {
				return errors.New("no source")
			}
			*created = p
			return nil
		},
	}
}

func TestCreateInstance(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray.fscontext")
	defer teardown()

	var created Params
	fc, err := Open(testFS(&created))
	require.NoError(t, err)
	defer fc.Close()
	assert.Equal(t, CreateParams, fc.Phase())

	for _, line := range []string{"s /dev/sda1", "o ro", "o cell=grand.central.org", "o debug\n", "o rw", "o sync"} {
		require.NoError(t, fc.Write(line), line)
	}
	require.NoError(t, fc.Create())
	assert.Equal(t, AwaitingMount, fc.Phase())
	assert.Equal(t, "/dev/sda1", created.Source)
	assert.Equal(t, Synchronous, created.Flags)
	require.Len(t, created.Options, 5)
	assert.Equal(t, Option{Key: "cell", Value: "grand.central.org", HasValue: true}, created.Options[1])
	assert.Equal(t, "debug", created.Options[2].String())

	flagged := fc.FlagOptions()
	require.Len(t, flagged, 3)
	assert.Equal(t, []string{"ro", "rw", "sync"},
		[]string{flagged[0].Key, flagged[1].Key, flagged[2].Key})

	assert.ErrorIs(t, fc.Write("o late"), ErrBusy)
	assert.ErrorIs(t, fc.Create(), ErrBusy)
}

func TestMalformedCommands(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray.fscontext")
	defer teardown()

	var created Params
	fc, err := Open(testFS(&created))
	require.NoError(t, err)
	defer fc.Close()

	for _, line := range []string{"", "s", "sx/dev", "d /dev/sda", strings.Repeat("o", maxLine+1), "o =x", "o nosuid", "o bogus"} {
		assert.ErrorIs(t, fc.Write(line), ErrInvalid, "%q", line)
	}
	require.NoError(t, fc.Write("s src"))
	assert.ErrorIs(t, fc.Write("s other"), ErrInvalid)
	assert.ErrorIs(t, fc.Write("x reconfigure"), ErrNotSupported)
	assert.Equal(t, CreateParams, fc.Phase())
	assert.Empty(t, fc.Params().Options)
}

func TestFailedCreation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray.fscontext")
	defer teardown()

	var created Params
	fc, err := Open(testFS(&created))
	require.NoError(t, err)
	defer fc.Close()
	require.Error(t, fc.Create())
	assert.Equal(t, Failed, fc.Phase())
	assert.ErrorIs(t, fc.Write("s src"), ErrBusy)
}

func TestReconfiguration(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray.fscontext")
	defer teardown()

	var created Params
	inits := 0
	fstype := testFS(&created)
	fstype.InitReconf = func() error {
		inits++
		return nil
	}
	fc, err := Pick(fstype)
	require.NoError(t, err)
	defer fc.Close()
	assert.Equal(t, AwaitingReconf, fc.Phase())
	require.NoError(t, fc.Write("o ro"))
	require.NoError(t, fc.Write("o size=10"))
	assert.Equal(t, ReconfParams, fc.Phase())
	assert.Equal(t, 1, inits)
	assert.ErrorIs(t, fc.Create(), ErrBusy)
	assert.Equal(t, ReadOnly, fc.Params().Flags)

	fstype.InitReconf = func() error { return errors.New("gone") }
	broken, err := Pick(fstype)
	require.NoError(t, err)
	defer broken.Close()
	require.Error(t, broken.Write("o ro"))
	assert.Equal(t, Failed, broken.Phase())
}

func TestDecodeOptions(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "iarray.fscontext")
	defer teardown()

	var created Params
	fc, err := Open(testFS(&created))
	require.NoError(t, err)
	defer fc.Close()
	for _, line := range []string{"s server:/export", "o size=4096", "o debug", "o cell=x"} {
		require.NoError(t, fc.Write(line))
	}
	var opts struct {
		Source string `mount:"source"`
		Size   int    `mount:"size"`
		Debug  bool   `mount:"debug"`
		Cell   string
	}
	require.NoError(t, fc.Decode(&opts))
	assert.Equal(t, "server:/export", opts.Source)
	assert.Equal(t, 4096, opts.Size)
	assert.True(t, opts.Debug)
	assert.Equal(t, "x", opts.Cell)

	var bad struct {
		Size int `mount:"size"`
	}
	require.NoError(t, fc.Write("o size=huge"))
	assert.ErrorIs(t, fc.Decode(&bad), ErrInvalid)
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "-", Flags(0).String())
	assert.Equal(t, "ro,sync", (ReadOnly | Synchronous).String())
}

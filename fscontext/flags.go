package fscontext

import (
	"fmt"
	"strings"

	"github.com/npillmayer/iarray"
)

// Flags are superblock flags set by standard options.
type Flags uint32

// Superblock flags.
const (
	ReadOnly Flags = 1 << iota
	Synchronous
	MandLock
	DirSync
	PosixACL
	LazyTime
	Silent
)

var flagNames = [...]string{"ro", "sync", "mand", "dirsync", "posixacl", "lazytime", "silent"}

func (f Flags) String() string {
	var names []string
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

// flagTag marks options in the parameter array which toggle flags.
const flagTag = iarray.Tag0

type flagOption struct {
	flag Flags
	set  bool
}

func (fo flagOption) apply(f Flags) Flags {
	if fo.set {
		return f | fo.flag
	}
	return f &^ fo.flag
}

var flagOptions = map[string]flagOption{
	"dirsync":    {DirSync, true},
	"lazytime":   {LazyTime, true},
	"mand":       {MandLock, true},
	"posixacl":   {PosixACL, true},
	"ro":         {ReadOnly, true},
	"sync":       {Synchronous, true},
	"nolazytime": {LazyTime, false},
	"nomand":     {MandLock, false},
	"rw":         {ReadOnly, false},
	"silent":     {Silent, false},
	"async":      {Synchronous, false},
}

// Options that belong to mounts rather than to filesystem instances.
var forbiddenOptions = map[string]bool{
	"bind": true, "move": true, "private": true, "remount": true,
	"shared": true, "slave": true, "unbindable": true, "rec": true,
	"noatime": true, "relatime": true, "norelatime": true,
	"strictatime": true, "nostrictatime": true, "nodiratime": true,
	"dev": true, "nodev": true, "exec": true, "noexec": true,
	"suid": true, "nosuid": true,
}

// parseFlagOption checks whether opt is a standard flag option.
func parseFlagOption(opt Option) (flagOption, bool, error) {
	if opt.HasValue {
		return flagOption{}, false, nil
	}
	if fo, ok := flagOptions[opt.Key]; ok {
		return fo, true, nil
	}
	if forbiddenOptions[opt.Key] {
		return flagOption{}, false, fmt.Errorf("%w: %q is a mount option", ErrInvalid, opt.Key)
	}
	return flagOption{}, false, nil
}

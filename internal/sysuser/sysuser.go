// Package sysuser resolves account and group names to numeric ids. Container
// images frequently configure numeric ids directly, so bare numbers are
// accepted wherever a name is.
package sysuser

import (
	"fmt"
	"os/user"
	"strconv"
)

type Credential struct {
	UID int
	GID int
}

// Resolve maps a user and group name (or numeric id) to a credential.
func Resolve(userName, groupName string) (Credential, error) {
	uid, err := LookupUID(userName)
	if err != nil {
		return Credential{}, err
	}
	gid, err := LookupGID(groupName)
	if err != nil {
		return Credential{}, err
	}
	return Credential{UID: uid, GID: gid}, nil
}

func LookupUID(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("user name must not be empty")
	}
	if u, err := user.Lookup(name); err == nil {
		uid, err := strconv.Atoi(u.Uid)
		if err != nil {
			return 0, fmt.Errorf("parse uid %q for user %s: %w", u.Uid, name, err)
		}
		return uid, nil
	}
	if uid, err := strconv.Atoi(name); err == nil && uid >= 0 {
		return uid, nil
	}
	return 0, fmt.Errorf("unknown user %q", name)
}

func LookupGID(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("group name must not be empty")
	}
	if g, err := user.LookupGroup(name); err == nil {
		gid, err := strconv.Atoi(g.Gid)
		if err != nil {
			return 0, fmt.Errorf("parse gid %q for group %s: %w", g.Gid, name, err)
		}
		return gid, nil
	}
	if gid, err := strconv.Atoi(name); err == nil && gid >= 0 {
		return gid, nil
	}
	return 0, fmt.Errorf("unknown group %q", name)
}

// SPDX-License-Identifier: GPL-3.0-or-later

// Package filelock guards instance names across plugin processes sharing a lock directory,
// so two processes never monitor the same broker node under the same name.
package filelock

import (
	"net/url"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

func New(dir string) *Locker {
	return &Locker{
		suffix: ".instance.lock",
		dir:    dir,
		locks:  make(map[string]*flock.Flock),
	}
}

type Locker struct {
	suffix string
	dir    string

	mux   sync.Mutex
	locks map[string]*flock.Flock
}

// Lock acquires the lock of name without blocking.
// It returns false (and a nil error) when another process holds it.
func (l *Locker) Lock(name string) (bool, error) {
	filename := l.filename(name)

	l.mux.Lock()
	defer l.mux.Unlock()

	if _, ok := l.locks[filename]; ok {
		return true, nil
	}

	locker := flock.New(filename)

	ok, err := locker.TryLock()
	if ok {
		l.locks[filename] = locker
	} else {
		_ = locker.Close()
	}

	return ok, err
}

func (l *Locker) Unlock(name string) {
	filename := l.filename(name)

	l.mux.Lock()
	defer l.mux.Unlock()

	locker, ok := l.locks[filename]
	if !ok {
		return
	}

	delete(l.locks, filename)

	_ = locker.Close()
}

func (l *Locker) isLocked(name string) bool {
	l.mux.Lock()
	defer l.mux.Unlock()

	_, ok := l.locks[l.filename(name)]
	return ok
}

// filename escapes name so that distinct names never share a lock file.
func (l *Locker) filename(name string) string {
	return filepath.Join(l.dir, url.QueryEscape(name)+l.suffix)
}

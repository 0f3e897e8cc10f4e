// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
)

const (
	bookmarkName   = "bookmark"
	resumeDataName = "resume-data"
	partialName    = "partial"
	dataDirName    = "data"
	defaultName    = "download"
	maxNameLen     = 200
)

// A Result is the outcome of a cache lookup.
type Result int

const (
	// Miss means there is no usable cache entry.
	Miss Result = iota
	// Hit means the bookmarked file exists and has the expected size.
	Hit
	// Stale means the bookmarked file exists but its size differs from
	// the size the server reports now.
	Stale
)

func (r Result) String() string {
	switch r {
	case Miss:
		return "miss"
	case Hit:
		return "hit"
	case Stale:
		return "stale"
	default:
		return "Result(?)"
	}
}

// Lookup describes the cache entry found for a key. Path and Size are
// set for Hit and Stale results.
type Lookup struct {
	Result Result
	Path   string
	Size   int64
}

// A Bookmark is the persistent record of a completed download.
type Bookmark struct {
	// Path is the file holding the body. It is relative to the cache
	// root when the file lives inside it.
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	URL     string    `json:"url,omitempty"`
}

// Store is a download cache rooted at one directory of a filesystem.
// A Store is safe for concurrent use; operations on the same key are
// serialized.
type Store struct {
	fs   afero.Fs
	root string

	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// New returns a store rooted at root on fsys. Nothing is created on
// disk until the first entry is written.
func New(fsys afero.Fs, root string) *Store {
	return &Store{
		fs:    fsys,
		root:  filepath.Clean(root),
		locks: make(map[string]*entryLock),
	}
}

// Fs returns the filesystem the store operates on.
func (s *Store) Fs() afero.Fs { return s.fs }

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Key returns the cache key for an absolute URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Lookup checks the bookmark for key against the file system.
//
// If size is not negative, a bookmarked file of any other size is
// Stale and left in place. A bookmark whose file is gone, or whose file
// no longer matches the size it was recorded with, is deleted and the
// result is Miss. A non-nil error is informational: the result is
// always usable and is Miss whenever the bookmark could not be read.
func (s *Store) Lookup(key string, size int64) (Lookup, error) {
	unlock, err := s.lockEntry(key)
	if err != nil {
		return Lookup{}, err
	}
	defer unlock()

	dir := filepath.Join(s.root, key)
	bm, err := s.readBookmark(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return Lookup{}, nil
	} else if err != nil {
		_ = s.fs.Remove(filepath.Join(dir, bookmarkName))
		return Lookup{}, &Error{"lookup", key, err}
	}

	p := s.resolve(bm.Path)
	info, err := s.fs.Stat(p)
	if err != nil || info.IsDir() || info.Size() != bm.Size {
		_ = s.fs.Remove(filepath.Join(dir, bookmarkName))
		return Lookup{}, nil
	}

	l := Lookup{Result: Hit, Path: p, Size: info.Size()}
	if size >= 0 && size != info.Size() {
		l.Result = Stale
	}
	return l, nil
}

// Bookmark returns the bookmark stored for key.
func (s *Store) Bookmark(key string) (Bookmark, error) {
	dir, err := s.dir(key)
	if err != nil {
		return Bookmark{}, err
	}
	bm, err := s.readBookmark(dir)
	if err != nil {
		return Bookmark{}, err
	}
	bm.Path = s.resolve(bm.Path)
	return bm, nil
}

// ResumeData reads and deletes the resume data saved for key. It
// reports false if there is none or it cannot be read.
func (s *Store) ResumeData(key string) ([]byte, bool) {
	unlock, err := s.lockEntry(key)
	if err != nil {
		return nil, false
	}
	defer unlock()

	p := filepath.Join(s.root, key, resumeDataName)
	b, err := afero.ReadFile(s.fs, p)
	_ = s.fs.Remove(p)
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

// SaveResumeData stores data as the resume data for key, replacing any
// previous value.
func (s *Store) SaveResumeData(key string, data []byte) error {
	unlock, err := s.lockEntry(key)
	if err != nil {
		return err
	}
	defer unlock()

	dir := filepath.Join(s.root, key)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &Error{"save resume data", key, err}
	}
	if err := s.writeAtomic(dir, resumeDataName, data); err != nil {
		return &Error{"save resume data", key, err}
	}
	return nil
}

// PartialPath returns the path of the in-progress transfer file for
// key.
func (s *Store) PartialPath(key string) string {
	return filepath.Join(s.root, key, partialName)
}

// OpenPartial opens the in-progress transfer file for key for writing
// at offset, discarding anything beyond it. An offset of zero starts a
// fresh transfer.
func (s *Store) OpenPartial(key string, offset int64) (afero.File, error) {
	dir, err := s.dir(key)
	if err != nil {
		return nil, err
	}
	if err = s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{"open partial", key, err}
	}
	f, err := s.fs.OpenFile(filepath.Join(dir, partialName), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &Error{"open partial", key, err}
	}
	if err = f.Truncate(offset); err == nil {
		_, err = f.Seek(offset, io.SeekStart)
	}
	if err != nil {
		_ = f.Close()
		return nil, &Error{"open partial", key, err}
	}
	return f, nil
}

// PartialSize returns the size of the in-progress transfer file for
// key, or 0 if there is none.
func (s *Store) PartialSize(key string) int64 {
	info, err := s.fs.Stat(s.PartialPath(key))
	if err != nil {
		return 0
	}
	return info.Size()
}

// RemovePartial deletes the in-progress transfer file for key.
func (s *Store) RemovePartial(key string) error {
	err := s.fs.Remove(s.PartialPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// DefaultTarget returns the path inside the entry directory where a
// download of url is stored when the caller does not choose one. Bodies
// live in a data subdirectory so that no URL can name a file over the
// bookmark, the resume data or the partial transfer.
func (s *Store) DefaultTarget(key, url string) string {
	return filepath.Join(s.root, key, dataDirName, targetName(url))
}

// Finalize commits a completed transfer: it creates the parent
// directories of target, removes any stale bookmark and resume data,
// moves temp to target, and writes a fresh bookmark. Every failure is
// returned as an *Error.
func (s *Store) Finalize(key, temp, target, url string) (Bookmark, error) {
	unlock, err := s.lockEntry(key)
	if err != nil {
		return Bookmark{}, err
	}
	defer unlock()

	dir := filepath.Join(s.root, key)
	fail := func(err error) (Bookmark, error) {
		return Bookmark{}, &Error{"finalize", key, err}
	}
	if err = s.fs.MkdirAll(dir, 0o755); err != nil {
		return fail(err)
	}
	if err = s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fail(err)
	}
	for _, name := range []string{bookmarkName, resumeDataName} {
		if err = s.fs.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fail(err)
		}
	}
	if err = s.move(temp, target); err != nil {
		return fail(err)
	}
	info, err := s.fs.Stat(target)
	if err != nil {
		return fail(err)
	}

	bm := Bookmark{
		Path:    s.relative(target),
		Size:    info.Size(),
		ModTime: info.ModTime().UTC(),
		URL:     url,
	}
	b, err := json.Marshal(bm)
	if err != nil {
		return fail(err)
	}
	if err = s.writeAtomic(dir, bookmarkName, b); err != nil {
		return fail(err)
	}
	bm.Path = target
	return bm, nil
}

// Remove deletes the entry directory for key, including a completed
// body stored inside it. Bodies stored outside the cache root are left
// alone.
func (s *Store) Remove(key string) error {
	unlock, err := s.lockEntry(key)
	if err != nil {
		return err
	}
	defer unlock()

	if err = s.fs.RemoveAll(filepath.Join(s.root, key)); err != nil {
		return &Error{"remove", key, err}
	}
	return nil
}

func (s *Store) dir(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.root, key), nil
}

func (s *Store) readBookmark(dir string) (Bookmark, error) {
	var bm Bookmark
	b, err := afero.ReadFile(s.fs, filepath.Join(dir, bookmarkName))
	if err != nil {
		return bm, err
	}
	if err = json.Unmarshal(b, &bm); err != nil {
		return bm, err
	}
	if bm.Path == "" {
		return bm, errors.New("bookmark has no path")
	}
	return bm, nil
}

func (s *Store) writeAtomic(dir, name string, data []byte) error {
	f, err := afero.TempFile(s.fs, dir, "."+name+"-*")
	if err != nil {
		return err
	}
	tempName := f.Name()
	_, err = f.Write(data)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = s.move(tempName, filepath.Join(dir, name))
	}
	if err != nil {
		_ = s.fs.Remove(tempName)
	}
	return err
}

// move renames src to dst, replacing dst, and falls back to copying
// when the two are on different devices.
func (s *Store) move(src, dst string) error {
	err := s.fs.Rename(src, dst)
	if err == nil {
		return nil
	}
	if _, statErr := s.fs.Stat(src); statErr != nil {
		return err
	}
	if !errors.Is(err, syscall.EXDEV) {
		if rmErr := s.fs.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return err
		}
		if err = s.fs.Rename(src, dst); err == nil || !errors.Is(err, syscall.EXDEV) {
			return err
		}
	}
	return s.copyFile(src, dst)
}

func (s *Store) copyFile(src, dst string) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(dst)
		return err
	}
	return s.fs.Remove(src)
}

func (s *Store) relative(p string) string {
	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return rel
}

func (s *Store) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, p)
}

func (s *Store) lockEntry(key string) (func(), error) {
	if _, err := s.dir(key); err != nil {
		return nil, err
	}
	s.mu.Lock()
	lock := s.locks[key]
	if lock == nil {
		lock = &entryLock{}
		s.locks[key] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}, nil
}

func targetName(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
		if j := strings.IndexByte(p, '/'); j >= 0 {
			p = p[j:]
		} else {
			p = "/"
		}
	}
	name := path.Base(p)
	if name == "/" || name == "." || name == ".." || name == "" {
		return defaultName
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = b.String()
	if len(name) > maxNameLen {
		name = name[len(name)-maxNameLen:]
	}
	if strings.Trim(name, ".") == "" {
		return defaultName
	}
	return name
}

// Package storage keeps uploaded audio in per-session folders laid out as
// <root>/<YYYY-MM-DD>/<HHMMSS>/audio.<ext>, next to the transcription text.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sttd/internal/common/fsutil"
)

const (
	// DefaultExt is used when an upload carries no usable extension.
	DefaultExt = "webm"
	// TranscriptionFile is the name of the text file written per session.
	TranscriptionFile = "transcription.txt"

	audioBase    = "audio"
	dateLayout   = "2006-01-02"
	timeLayout   = "150405"
	maxExtLength = 8
)

var (
	// ErrNotFound is returned when a session or its audio is missing.
	ErrNotFound = errors.New("audio file not found")
	// ErrInvalidSession is returned for malformed folder identifiers.
	ErrInvalidSession = errors.New("invalid session identifier")

	dateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	sessionRe = regexp.MustCompile(`^\d{6}(-\d{1,4})?$`)
	extRe     = regexp.MustCompile(`^[a-z0-9]+$`)
)

// Session identifies one upload.
type Session struct {
	Date      string
	Time      string
	Dir       string
	AudioPath string
}

// TranscriptionPath returns where the session's transcription is written.
func (s Session) TranscriptionPath() string { return filepath.Join(s.Dir, TranscriptionFile) }

// Store manages session folders under one root.
type Store struct {
	root string
	now  func() time.Time
}

// New returns a Store rooted at root, creating it if needed.
func New(root string) (*Store, error) {
	abs, err := fsutil.Resolve(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}
	return &Store{root: abs, now: time.Now}, nil
}

// Root returns the absolute storage root.
func (s *Store) Root() string { return s.root }

// Ext derives a safe audio extension from an uploaded file name.
func Ext(filename string) string {
	e := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if e == "" || len(e) > maxExtLength || !extRe.MatchString(e) {
		return DefaultExt
	}
	return e
}

// Save copies r into a new session folder named after the current time.
// A second upload within the same second gets a numeric suffix.
func (s *Store) Save(r io.Reader, ext string) (Session, error) {
	if ext == "" || !extRe.MatchString(ext) || len(ext) > maxExtLength {
		ext = DefaultExt
	}
	now := s.now()
	date := now.Format(dateLayout)
	base := now.Format(timeLayout)
	dayDir := filepath.Join(s.root, date)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return Session{}, err
	}

	session := base
	var dir string
	for i := 1; ; i++ {
		dir = filepath.Join(dayDir, session)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || i > 9999 {
			return Session{}, err
		}
		session = base + "-" + strconv.Itoa(i)
	}

	sess := Session{Date: date, Time: session, Dir: dir, AudioPath: filepath.Join(dir, audioBase+"."+ext)}
	f, err := os.Create(sess.AudioPath)
	if err != nil {
		return Session{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return Session{}, fmt.Errorf("write audio: %w", err)
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return Session{}, err
	}
	return sess, nil
}

// Open locates the audio of an existing session.
func (s *Store) Open(date, session string) (Session, error) {
	if !dateRe.MatchString(date) || !sessionRe.MatchString(session) {
		return Session{}, fmt.Errorf("%w: %s/%s", ErrInvalidSession, date, session)
	}
	dir := filepath.Join(s.root, date, session)
	matches, err := filepath.Glob(filepath.Join(dir, audioBase+".*"))
	if err != nil {
		return Session{}, err
	}
	for _, m := range matches {
		if fsutil.IsFile(m) {
			return Session{Date: date, Time: session, Dir: dir, AudioPath: m}, nil
		}
	}
	return Session{}, fmt.Errorf("%w: %s/%s", ErrNotFound, date, session)
}

// WriteTranscription stores text as the session's transcription file and
// returns its path.
func (s *Store) WriteTranscription(sess Session, text string) (string, error) {
	p := sess.TranscriptionPath()
	if err := fsutil.WriteFileAtomic(p, []byte(text), 0o644); err != nil {
		return "", err
	}
	return p, nil
}

// Package pprof profiles the running process itself.
//
// File mode records a CPU profile for the lifetime of a session and writes
// the other requested profiles when it stops. HTTP mode serves the
// net/http/pprof endpoints on a separate address.
package pprof

import (
	"fmt"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/size-analysis/pkg/errors"
	"github.com/size-analysis/pkg/utils"
)

// Mode selects how profiles are collected.
type Mode string

const (
	ModeFile Mode = "file"
	ModeHTTP Mode = "http"
)

// ProfileType names a runtime profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

var knownProfiles = map[ProfileType]bool{
	ProfileCPU: true, ProfileHeap: true, ProfileGoroutine: true,
	ProfileBlock: true, ProfileMutex: true, ProfileAllocs: true,
}

// ParseProfileTypes parses a comma-separated list. An empty list selects cpu
// and heap.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return []ProfileType{ProfileCPU, ProfileHeap}, nil
	}
	var types []ProfileType
	for _, part := range strings.Split(s, ",") {
		pt := ProfileType(strings.ToLower(strings.TrimSpace(part)))
		if !knownProfiles[pt] {
			return nil, errors.Newf(errors.CodeConfigError, "unknown profile type: %q", part)
		}
		types = append(types, pt)
	}
	return types, nil
}

// Config configures a profiling session.
type Config struct {
	Mode     Mode
	Dir      string // file mode output root
	Addr     string // http mode listen address
	Profiles []ProfileType
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeFile:
		if c.Dir == "" {
			return errors.New(errors.CodeConfigError, "pprof output directory is required")
		}
	case ModeHTTP:
		if c.Addr == "" {
			return errors.New(errors.CodeConfigError, "pprof listen address is required")
		}
	default:
		return errors.Newf(errors.CodeConfigError, "invalid pprof mode: %q (valid: file, http)", c.Mode)
	}
	return nil
}

func (c *Config) has(pt ProfileType) bool {
	for _, p := range c.Profiles {
		if p == pt {
			return true
		}
	}
	return false
}

// Session is a running profiler. Stop it exactly once.
type Session struct {
	cfg     Config
	logger  utils.Logger
	dir     string
	cpuFile *os.File
	server  *http.Server
	addr    string
}

// Start begins profiling.
func Start(cfg Config, logger utils.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, logger: utils.OrNull(logger)}

	if cfg.has(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if cfg.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}

	var err error
	if cfg.Mode == ModeHTTP {
		err = s.startHTTP()
	} else {
		err = s.startFile()
	}
	if err != nil {
		s.resetRates()
		return nil, err
	}
	return s, nil
}

func (s *Session) startFile() error {
	s.dir = filepath.Join(s.cfg.Dir, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrap(errors.CodeConfigError, "failed to create pprof directory", err)
	}
	if !s.cfg.has(ProfileCPU) {
		return nil
	}

	f, err := os.Create(filepath.Join(s.dir, "cpu.pprof"))
	if err != nil {
		return errors.Wrap(errors.CodeConfigError, "failed to create cpu profile", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return errors.Wrap(errors.CodeConfigError, "failed to start cpu profile", err)
	}
	s.cpuFile = f
	return nil
}

func (s *Session) startHTTP() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.Wrap(errors.CodeConfigError, "failed to listen for pprof", err)
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("pprof server stopped: %v", err)
		}
	}()
	s.logger.Info("pprof endpoints at http://%s/debug/pprof/", s.addr)
	return nil
}

// Dir returns the directory profiles are written to in file mode.
func (s *Session) Dir() string {
	return s.dir
}

// Addr returns the listen address in HTTP mode.
func (s *Session) Addr() string {
	return s.addr
}

// Stop ends the session. In file mode it writes the remaining profiles.
func (s *Session) Stop() error {
	defer s.resetRates()

	if s.server != nil {
		return s.server.Close()
	}

	var firstErr error
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		firstErr = s.cpuFile.Close()
	}
	for _, pt := range s.cfg.Profiles {
		if pt == ProfileCPU {
			continue
		}
		if err := s.writeProfile(pt); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Session) writeProfile(pt ProfileType) error {
	p := pprof.Lookup(string(pt))
	if p == nil {
		return fmt.Errorf("profile %s is not available", pt)
	}
	if pt == ProfileHeap {
		runtime.GC()
	}
	f, err := os.Create(filepath.Join(s.dir, string(pt)+".pprof"))
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteTo(f, 0)
}

func (s *Session) resetRates() {
	if s.cfg.has(ProfileBlock) {
		runtime.SetBlockProfileRate(0)
	}
	if s.cfg.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(0)
	}
}

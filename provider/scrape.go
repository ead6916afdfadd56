package provider

import (
	"net"
	"net/http"
	"sync"

	"github.com/devopsext/measured/common"
	"github.com/devopsext/measured/exposition"
	"github.com/devopsext/measured/metric"
	"github.com/devopsext/utils"
)

type ScrapeOptions struct {
	URL     string
	Listen  string
	Version string
}

// Scrape exposes a registry over HTTP in the text exposition format. The
// encoder is reused across scrapes under a lock, so steady-state scrapes
// do not allocate for the body.
type Scrape struct {
	options  ScrapeOptions
	logger   common.Logger
	registry *metric.Registry
	listener *net.Listener

	mu      sync.Mutex
	encoder *exposition.Encoder
}

func (s *Scrape) handler(w http.ResponseWriter, r *http.Request) {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Expose(s.encoder)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if _, err := w.Write(s.encoder.Finish()); err != nil {
		s.logger.Error(err)
	}
}

func (s *Scrape) Start() bool {

	s.logger.Info("Start scrape endpoint...")

	url := s.options.URL
	if utils.IsEmpty(url) {
		url = "/metrics"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(url, s.handler)

	listener, err := net.Listen("tcp", s.options.Listen)
	if err != nil {
		s.logger.Error(err)
		return false
	}
	s.listener = &listener
	s.logger.Info("Scrape endpoint is up. Listening...")
	err = http.Serve(listener, mux)
	if err != nil {
		s.logger.Error(err)
		return false
	}
	return true
}

func (s *Scrape) StartInWaitGroup(wg *sync.WaitGroup) {

	wg.Add(1)

	go func(wg *sync.WaitGroup) {

		defer wg.Done()
		s.Start()
	}(wg)
}

func (s *Scrape) Stop() {
	if s.listener != nil {
		l := *s.listener
		l.Close()
	}
}

func NewScrape(options ScrapeOptions, registry *metric.Registry, logger common.Logger, stdout *Stdout) *Scrape {

	if logger == nil {
		logger = stdout
	}

	return &Scrape{
		options:  options,
		logger:   logger,
		registry: registry,
		encoder:  exposition.NewEncoder(),
	}
}

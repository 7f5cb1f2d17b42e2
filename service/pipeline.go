// Package service orchestrates one detection run: fetch T1/T2 imagery,
// render the change mask, build the report, and keep the result in the
// user's session until the next run replaces it.
package service

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"kshetranetra/aoi"
	"kshetranetra/change"
	"kshetranetra/config"
	"kshetranetra/email"
	"kshetranetra/imagery"
	"kshetranetra/models"
	"kshetranetra/report"

	"github.com/apex/log"
	"github.com/google/uuid"
	geojson "github.com/paulmach/go.geojson"
)

// Session is the per-user state for one interaction cycle. Each detection
// run overwrites LastReport; nothing survives the session.
type Session struct {
	ID         string
	AOI        *models.AreaOfInterest
	Uploads    map[string]image.Image
	LastReport *models.Report
	LastT1     models.CaptureMoment
	LastT2     models.CaptureMoment

	touched time.Time
}

// Pipeline wires the configured strategies together and owns the session
// store
type Pipeline struct {
	cfg      *config.Config
	selector *aoi.Selector
	provider imagery.Provider
	renderer change.Renderer
	builder  *report.Builder
	sender   email.Sender

	uploadMode bool

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewPipeline creates the pipeline. provider may be nil when the upload
// strategy is active; in that mode a provider is built per run from the
// session's upload slots.
func NewPipeline(cfg *config.Config, selector *aoi.Selector, provider imagery.Provider,
	renderer change.Renderer, builder *report.Builder, sender email.Sender) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		selector:   selector,
		provider:   provider,
		renderer:   renderer,
		builder:    builder,
		sender:     sender,
		uploadMode: cfg.ImageryProvider == "upload",
		sessions:   make(map[string]*Session),
	}
}

// Session returns the session for the given ID, creating a fresh one when
// the ID is empty or unknown. Stale sessions are evicted on the way.
func (p *Pipeline) Session(id string) *Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictStaleLocked()

	if id != "" {
		if sess, ok := p.sessions[id]; ok {
			sess.touched = time.Now()
			return sess
		}
	}

	sess := &Session{
		ID:      uuid.NewString(),
		Uploads: make(map[string]image.Image),
		touched: time.Now(),
	}
	p.sessions[sess.ID] = sess
	log.Infof("Session %s created", sess.ID)
	return sess
}

// evictStaleLocked drops sessions idle past the configured TTL. Caller
// holds p.mu.
func (p *Pipeline) evictStaleLocked() {
	cutoff := time.Now().Add(-p.cfg.SessionTTL)
	for id, sess := range p.sessions {
		if sess.touched.Before(cutoff) {
			delete(p.sessions, id)
			log.Infof("Session %s evicted after %v idle", id, p.cfg.SessionTTL)
		}
	}
}

// ResolveAOI geocodes a free-text place query and stores the resulting
// point AOI in the session. Geocoding failures pass through for the handler
// to surface as recoverable warnings.
func (p *Pipeline) ResolveAOI(ctx context.Context, sessionID, query string) (*models.AreaOfInterest, error) {
	sess := p.Session(sessionID)

	area, err := p.selector.Resolve(ctx, query)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	sess.AOI = area
	p.mu.Unlock()
	return area, nil
}

// SetDrawnAOI normalizes a drawn geometry and stores it in the session
func (p *Pipeline) SetDrawnAOI(sessionID string, geometry *geojson.Geometry) (*models.AreaOfInterest, error) {
	sess := p.Session(sessionID)

	area, err := aoi.FromGeometry(geometry)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	sess.AOI = area
	p.mu.Unlock()
	return area, nil
}

// StoreUpload decodes an uploaded image into the session's slot for the
// given moment label ("T1" or "T2")
func (p *Pipeline) StoreUpload(sessionID, slot, filename string, data []byte) error {
	if slot != "T1" && slot != "T2" {
		return fmt.Errorf("unknown image slot %q, want T1 or T2", slot)
	}

	img, err := imagery.DecodeUpload(filename, data)
	if err != nil {
		return err
	}

	sess := p.Session(sessionID)
	p.mu.Lock()
	sess.Uploads[slot] = img
	p.mu.Unlock()

	log.Infof("Session %s: stored %s upload %s (%dx%d)",
		sess.ID, slot, filename, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

// RunDetection executes one full run: fetch T1, fetch T2, render the mask,
// build the report. The fetches are sequential. Any failure aborts the run
// without touching the session's previous report.
func (p *Pipeline) RunDetection(ctx context.Context, sessionID string, t1, t2 models.CaptureMoment) (*models.Report, error) {
	sess := p.Session(sessionID)

	p.mu.Lock()
	area := sess.AOI
	provider := p.provider
	if p.uploadMode {
		uploads := make(map[string]image.Image, len(sess.Uploads))
		for k, v := range sess.Uploads {
			uploads[k] = v
		}
		provider = imagery.NewUploadProvider(uploads)
	}
	p.mu.Unlock()

	if area == nil {
		return nil, models.ErrMissingAOI
	}

	img1, err := provider.Fetch(ctx, area, t1)
	if err != nil {
		return nil, fmt.Errorf("fetching T1 image: %w", err)
	}
	img2, err := provider.Fetch(ctx, area, t2)
	if err != nil {
		return nil, fmt.Errorf("fetching T2 image: %w", err)
	}

	mask, err := p.renderer.Render(img1, img2)
	if err != nil {
		return nil, fmt.Errorf("rendering change mask: %w", err)
	}

	rep, err := p.builder.Build(aoi.Describe(area), t1, t2, mask, time.Now(), report.DefaultSummary, area.Name)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}

	p.mu.Lock()
	sess.LastReport = rep
	sess.LastT1 = t1
	sess.LastT2 = t2
	p.mu.Unlock()

	log.Infof("Session %s: detection run complete, report %d bytes", sess.ID, len(rep.Bytes))
	return rep, nil
}

// LastReport returns the session's current report, if a run has produced one
func (p *Pipeline) LastReport(sessionID string) (*models.Report, error) {
	sess := p.Session(sessionID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if sess.LastReport == nil {
		return nil, models.ErrNoReport
	}
	return sess.LastReport, nil
}

// SendReport emails the session's current report to the recipient. A single
// attempt; the classified failure comes back for the handler to surface.
func (p *Pipeline) SendReport(ctx context.Context, sessionID, recipient string) (*models.DeliveryResult, error) {
	sess := p.Session(sessionID)

	p.mu.Lock()
	rep := sess.LastReport
	t1, t2 := sess.LastT1, sess.LastT2
	p.mu.Unlock()

	if recipient == "" {
		return nil, models.ErrEmptyRecipient
	}
	if rep == nil {
		return nil, models.ErrNoReport
	}

	dispatch := email.NewDispatch(recipient, rep, t1, t2)
	return p.sender.Send(ctx, dispatch)
}

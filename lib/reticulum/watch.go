package reticulum

import (
	"errors"
	"slices"
	"sort"
	"sync/atomic"

	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/destination"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/transport"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// ErrInvalidFilter is returned for aspect filters with an empty component.
var ErrInvalidFilter = errors.New("aspect filter has an empty name component")

func validateFilter(f string) error {
	app, aspects := destination.AppAndAspectsFromName(f)
	if app == "" || slices.Contains(aspects, "") {
		return oops.Wrapf(ErrInvalidFilter, "aspect filter %q", f)
	}
	return nil
}

// AnnounceFunc receives the announces of watched aspects. aspect is the
// filter that matched.
type AnnounceFunc func(aspect string, destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error

// watchedAspect is an announce handler that can be switched off again.
// The handler registry keeps every handler it was given, so a reload
// disables aspects instead of removing them.
type watchedAspect struct {
	r             *Reticulum
	filter        string
	enabled       atomic.Bool
	pathResponses atomic.Bool
}

var _ transport.AnnounceHandler = &watchedAspect{}

func (w *watchedAspect) AspectFilter() string       { return w.filter }
func (w *watchedAspect) ReceivePathResponses() bool { return w.pathResponses.Load() }

// Enabled reports whether the aspect is still watched.
func (w *watchedAspect) Enabled() bool { return w.enabled.Load() }

func (w *watchedAspect) ReceivedAnnounce(destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error {
	if !w.enabled.Load() {
		return nil
	}
	w.r.watchMu.Lock()
	fn := w.r.onWatch
	w.r.watchMu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(w.filter, destinationHash, announced, appData, packetHash, isPathResponse)
}

// WatchAspects makes fn the receiver for announces of every aspect filter
// in filters. Filters watched by an earlier call but missing from filters
// are switched off. An invalid filter fails the whole call and changes
// nothing.
func (r *Reticulum) WatchAspects(filters []string, pathResponses bool, fn AnnounceFunc) error {
	for _, f := range filters {
		if err := validateFilter(f); err != nil {
			return err
		}
	}

	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	r.onWatch = fn

	wanted := make(map[string]bool, len(filters))
	for _, f := range filters {
		wanted[f] = true
	}
	for f, w := range r.watched {
		w.enabled.Store(wanted[f])
		w.pathResponses.Store(pathResponses)
	}
	for f := range wanted {
		if _, ok := r.watched[f]; ok {
			continue
		}
		w := &watchedAspect{r: r, filter: f}
		w.enabled.Store(true)
		w.pathResponses.Store(pathResponses)
		if !r.transport.RegisterAnnounceHandler(w) {
			return oops.Errorf("could not register aspect filter %q", f)
		}
		r.watched[f] = w
	}

	log.WithFields(logger.Fields{
		"aspects":        filters,
		"path_responses": pathResponses,
	}).Info("Watching announces")
	return nil
}

// WatchedAspects returns the enabled aspect filters, sorted.
func (r *Reticulum) WatchedAspects() []string {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	var out []string
	for f, w := range r.watched {
		if w.Enabled() {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

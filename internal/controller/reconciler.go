package controller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/client"
	"github.com/kjstillabower/sunrise-lookup/internal/models"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
)

// Reconciler merges map clicks, geocoded addresses and typed coordinates into
// the single selection held by the form fields and the map marker.
type Reconciler struct {
	backend  client.Backend
	form     Form
	button   *busyControl
	mapView  Map
	notifier notify.Notifier
	logger   *zap.Logger

	mu       sync.Mutex
	geocoded *models.Coordinates
}

// MapClicked moves the selection to at. The address field is cleared because it
// no longer describes the selection.
func (r *Reconciler) MapClicked(at models.Coordinates) {
	lat, lng := at.Fixed()
	r.form.SetCoordinates(lat, lng)
	r.form.SetAddress("")
	r.mapView.SetSelectionMarker(at)

	r.mu.Lock()
	r.geocoded = nil
	r.mu.Unlock()

	r.logger.Debug("selection from map", zap.String("lat", lat), zap.String("lng", lng))
}

// Geocode resolves the address field and, on success, makes the result the
// selection. An empty address is rejected without a request.
func (r *Reconciler) Geocode(ctx context.Context) error {
	busy, ok := r.button.claim()
	if !ok {
		r.logger.Debug("geocode ignored while busy")
		return ErrControlDisabled
	}
	defer busy.release()

	address := strings.TrimSpace(r.form.Address())
	if address == "" {
		r.notifier.Notify(notify.KindError, msgEmptyAddress)
		return validationError(msgEmptyAddress)
	}

	busy.show(geocodeBusyLabel)

	result, err := r.backend.Geocode(ctx, address)
	if err != nil {
		r.reportFailure(err, msgGeocodeFailed)
		return err
	}

	lat, lng := result.Shortest()
	r.form.SetCoordinates(lat, lng)
	r.mapView.SetSelectionMarker(result.Coordinates)
	r.mapView.FocusOn(result.Coordinates, FocusZoom)
	r.mapView.BindPopup(addressPopup(result.Address))

	at := result.Coordinates
	r.mu.Lock()
	r.geocoded = &at
	r.mu.Unlock()

	r.notifier.Notify(notify.KindSuccess, msgLocationFound+firstSegment(result.Address))
	r.logger.Info("address geocoded",
		zap.String("address", result.Address),
		zap.Float64("lat", at.Latitude),
		zap.Float64("lng", at.Longitude))
	return nil
}

// Selection parses the typed coordinate fields.
func (r *Reconciler) Selection() (models.Coordinates, bool) {
	lat, okLat := parseCoordinate(r.form.Latitude())
	lng, okLng := parseCoordinate(r.form.Longitude())
	if !okLat || !okLng {
		return models.Coordinates{}, false
	}
	return models.Coordinates{Latitude: lat, Longitude: lng}, true
}

// Accept reflects a successful sun-time lookup on the map. When the submitted
// coordinates no longer match the last geocoded address, that address is
// cleared so the field cannot describe a different place than the result.
func (r *Reconciler) Accept(submitted models.Coordinates, result models.SunTimeResult) {
	at := result.Location.Coordinates()
	r.mapView.SetSelectionMarker(at)
	r.mapView.FocusOn(at, FocusZoom)
	r.mapView.BindPopup(sunTimesPopup(result))

	r.mu.Lock()
	stale := r.geocoded != nil && *r.geocoded != submitted
	if stale {
		r.geocoded = nil
	}
	r.mu.Unlock()

	if stale {
		r.form.SetAddress("")
	}
}

func (r *Reconciler) reportFailure(err error, fallback string) {
	switch {
	case errors.Is(err, client.ErrDomain):
		r.notifier.Notify(notify.KindError, client.Message(err, fallback))
		r.logger.Info("backend rejected request", zap.Error(err))
	default:
		r.notifier.Notify(notify.KindError, msgNetwork)
		r.logger.Warn("backend unreachable",
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
	}
}

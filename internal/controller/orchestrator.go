package controller

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/sunrise-lookup/internal/client"
	"github.com/kjstillabower/sunrise-lookup/internal/notify"
	"github.com/kjstillabower/sunrise-lookup/internal/ui"
)

// Orchestrator runs one sun-time request per submission and applies the
// outcome to the page.
type Orchestrator struct {
	backend    client.Backend
	reconciler *Reconciler
	display    *Display
	store      *ResultStore
	form       Form
	button     *busyControl
	panel      Panel
	notifier   notify.Notifier
	logger     *zap.Logger
}

// Submit validates the form, requests sun times and on success replaces the
// stored result. Failures leave the stored result and the panel untouched.
// The submit button is busy for the duration of the call and is restored on
// every exit.
// A click while another submission holds the button returns ErrControlDisabled.
func (o *Orchestrator) Submit(ctx context.Context) error {
	busy, ok := o.button.claim()
	if !ok {
		o.logger.Debug("submit ignored while busy")
		return ErrControlDisabled
	}
	defer busy.release()

	at, ok := o.reconciler.Selection()
	if !ok {
		o.notifier.Notify(notify.KindError, msgInvalidCoordinates)
		return validationError(msgInvalidCoordinates)
	}
	date := o.form.Date()
	if isBlank(date) {
		o.notifier.Notify(notify.KindError, msgMissingDate)
		return validationError(msgMissingDate)
	}

	busy.show(submitBusyLabel)

	o.logger.Debug("requesting sun times",
		zap.Float64("lat", at.Latitude),
		zap.Float64("lng", at.Longitude),
		zap.String("date", date))

	result, err := o.backend.GetSunTimes(ctx, at, date)
	if err != nil {
		o.reconciler.reportFailure(err, msgSunTimesFailed)
		return err
	}

	o.store.Replace(result)
	o.panel.Show()
	o.display.TimezoneToggled()
	o.reconciler.Accept(at, result)
	o.notifier.Notify(notify.KindSuccess, msgSunTimesOK)
	if o.form.Width() < ui.SmallViewport {
		o.panel.ScrollIntoView()
	}

	o.logger.Info("sun times updated",
		zap.String("location", result.Location.Name),
		zap.String("timezone", result.Local.Timezone))
	return nil
}

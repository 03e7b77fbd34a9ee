package tray

import (
	"fyne.io/fyne/v2"
)

// Notifier sends reminders as desktop notifications.
// Fyne cannot withdraw a delivered notification, so there is no CancelPending.
type Notifier struct {
	app fyne.App
	run func(func())
}

// NewNotifier returns a notifier backed by app.
func NewNotifier(app fyne.App) *Notifier {
	return &Notifier{app: app, run: fyne.Do}
}

// Notify queues a notification; delivery failures are not reported by fyne.
func (notifier *Notifier) Notify(title, body string) error {
	notification := fyne.NewNotification(title, body)
	notifier.run(func() {
		notifier.app.SendNotification(notification)
	})
	return nil
}

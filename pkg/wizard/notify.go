package wizard

import (
	"sync"
	"time"
)

// Status classifies a notification.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "danger"
)

// DefaultDismiss is how long a notification stays visible.
const DefaultDismiss = time.Second

// User-facing messages.
const (
	MessageCreated       = "User created successfully"
	MessageUpdated       = "User updated successfully"
	MessageDeleted       = "User deleted successfully"
	MessageFailed        = "Something went wrong"
	MessageDeleteFailed  = "Failed to delete user. Please try again."
	MessageConfirmDelete = "Are you sure you want to delete this user?"
)

// Notification is a transient, auto-dismissing message.
type Notification struct {
	Status  Status
	Message string
	Dismiss time.Duration
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Route is a navigation target.
type Route string

const (
	RouteList   Route = "/user/list"
	RouteCreate Route = "/user/add"
)

// EditRoute returns the edit view route for id.
func EditRoute(id string) Route {
	return Route("/user/edit/" + id)
}

// Navigator moves the user between views.
type Navigator interface {
	Navigate(Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

func (f NavigatorFunc) Navigate(r Route) { f(r) }

// Recorder captures notifications and navigations. It is safe for
// concurrent use and useful for front ends that poll.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
	routes        []Route
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *Recorder) Navigate(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Notifications returns a copy of the recorded notifications.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notifications...)
}

// Routes returns a copy of the recorded navigations.
func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Navigate(Route)      {}

package app

import "github.com/shinyyama/hoko/internal/model"

type Screen string

const (
	ScreenWelcome        Screen = "welcome"
	ScreenProductDetails Screen = "product-details"
	ScreenLogin          Screen = "login"
	ScreenSellerLogin    Screen = "seller-login"
	ScreenBuyerLogin     Screen = "buyer-login"
	ScreenDashboard      Screen = "dashboard"
)

type Tab string

const (
	TabDashboard     Tab = "dashboard"
	TabMyPosts       Tab = "my-posts"
	TabMyOffers      Tab = "my-offers"
	TabNotifications Tab = "notifications"
	TabMessages      Tab = "messages"
)

func validTab(t Tab) bool {
	switch t {
	case TabDashboard, TabMyPosts, TabMyOffers, TabNotifications, TabMessages:
		return true
	}
	return false
}

// Command is a navigation request carried by toasts and the API alike.
type Command interface {
	command()
}

// ViewNotifications opens the notifications tab and pulses the badge.
type ViewNotifications struct {
	NotificationID string `json:"notification_id,omitempty"`
}

// SelectTab switches the dashboard tab.
type SelectTab struct {
	Tab Tab `json:"tab"`
}

func (ViewNotifications) command() {}
func (SelectTab) command()         {}

// Toast is a transient popup for a pushed notification.
type Toast struct {
	ID           string             `json:"id"`
	Notification model.Notification `json:"notification"`
	ActionLabel  string             `json:"action_label"`
	Action       Command            `json:"-"`
}

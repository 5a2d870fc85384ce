// Package settings provides the per-organization configuration store used
// by the cadence policy and compliance gate. Values are read-only from a
// dispatch invocation's perspective.
package settings

// OutreachSettings is the merged view of an organization's outreach
// configuration: stored overrides on top of the defaults below.
type OutreachSettings struct {
	// Quiet hours: no call or SMS dispatch between start and end, evaluated
	// in the organization's timezone. Start == End disables the window.
	QuietHoursStart int    `json:"quietHoursStart"`
	QuietHoursEnd   int    `json:"quietHoursEnd"`
	Timezone        string `json:"timezone"`

	// DailyContactCap is the max outbound communications per lead per
	// rolling 24 hours. Zero disables the cap.
	DailyContactCap int `json:"dailyContactCap"`

	CallChannelEnabled  bool `json:"callChannelEnabled"`
	SMSChannelEnabled   bool `json:"smsChannelEnabled"`
	EmailChannelEnabled bool `json:"emailChannelEnabled"`

	// Recapture cadence: day offsets from the first attempt.
	RecaptureDayOffsets  []int `json:"recaptureDayOffsets"`
	RecaptureMaxAttempts int   `json:"recaptureMaxAttempts"`

	ConfirmationMaxAttempts int `json:"confirmationMaxAttempts"`

	// No-show follow-up: day offsets from the no-show event for attempts
	// 2..n.
	NoShowDayOffsets  []int `json:"noShowDayOffsets"`
	NoShowMaxAttempts int   `json:"noShowMaxAttempts"`

	// Delay before the recapture task chained after the welcome sequence.
	WelcomeFollowupDelayHours int `json:"welcomeFollowupDelayHours"`

	// VoiceID selects the provider voice used for outbound calls.
	VoiceID string `json:"voiceId"`

	// OrganizationName is the display name used in generated scripts and
	// messages. Empty falls back to a generic phrasing.
	OrganizationName string `json:"organizationName"`
}

// Defaults returns the baseline settings applied when an organization has no
// stored overrides.
func Defaults() OutreachSettings {
	return OutreachSettings{
		QuietHoursStart:           21,
		QuietHoursEnd:             8,
		Timezone:                  "America/Chicago",
		DailyContactCap:           3,
		CallChannelEnabled:        true,
		SMSChannelEnabled:         true,
		EmailChannelEnabled:       true,
		RecaptureDayOffsets:       []int{1, 2, 4, 7, 10, 14, 21},
		RecaptureMaxAttempts:      7,
		ConfirmationMaxAttempts:   3,
		NoShowDayOffsets:          []int{1, 3},
		NoShowMaxAttempts:         3,
		WelcomeFollowupDelayHours: 24,
		VoiceID:                   "default",
	}
}

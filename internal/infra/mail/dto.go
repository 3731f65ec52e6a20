package mail

type LeadAlertData struct {
	EventID     string
	SessionID   string
	FunnelType  string
	Name        string
	Email       string
	Phone       string
	Location    string
	TCPAConsent bool
	Source      string
	LandingPage string
	SubmittedAt string
}

package gateway

import (
	"github.com/GriffinCanCode/tarkov-gateway/internal/infrastructure/config"
	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// Profile names one endpoint/header configuration.
type Profile string

const (
	Prod         Profile = "prod"
	LauncherProd Profile = "launcherProd"
	Launcher     Profile = "launcher"
	Trading      Profile = "trading"
	Ragfair      Profile = "ragfair"
)

// ProfileSpec is the fixed configuration of one handle.
type ProfileSpec struct {
	Profile Profile
	BaseURL string
	Flags   protocol.Flags
}

// Profiles returns the five profiles in construction order.
func Profiles(endpoints config.EndpointsConfig) []ProfileSpec {
	return []ProfileSpec{
		{Profile: Prod, BaseURL: endpoints.Prod, Flags: protocol.DefaultFlags},
		{Profile: LauncherProd, BaseURL: endpoints.Prod, Flags: protocol.LauncherFlags},
		{Profile: Launcher, BaseURL: endpoints.Launcher, Flags: protocol.LauncherFlags},
		{Profile: Trading, BaseURL: endpoints.Trading, Flags: protocol.DefaultFlags},
		{Profile: Ragfair, BaseURL: endpoints.Ragfair, Flags: protocol.DefaultFlags},
	}
}

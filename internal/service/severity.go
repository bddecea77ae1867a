package service

import (
	"strings"

	"intel-service/internal/domain/intel"
)

// redKeywords marks an incident category as high severity when the
// category text contains any of them. Kept as an ordered table so the
// classification rule is one reviewable artifact; "ARMA" and "DETONACION"
// also cover their plural spellings by containment.
var redKeywords = []string{
	"ROBO",
	"HOMICIDIO",
	"ARMA",
	"SECUESTRO",
	"DETONACION",
}

// victimRoles are the involvement labels that classify a person as a
// victim in the link graph; anything else counts as a suspect.
var victimRoles = []string{
	"AFECTADO",
	"VICTIMA",
	"VÍCTIMA",
	"DENUNCIANTE",
}

// ClassifySeverity maps an incident category to an alert severity.
func ClassifySeverity(category string) string {
	upper := strings.ToUpper(category)
	for _, kw := range redKeywords {
		if strings.Contains(upper, kw) {
			return intel.SeverityRed
		}
	}
	return intel.SeverityOrange
}

// ClassifyRole maps a person's involvement label to VICTIMA or PRESUNTO.
func ClassifyRole(involvement string) string {
	upper := strings.ToUpper(strings.TrimSpace(involvement))
	for _, role := range victimRoles {
		if upper == role {
			return intel.RoleVictim
		}
	}
	return intel.RoleSuspect
}

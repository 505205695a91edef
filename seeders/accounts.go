package seeders

import (
	"field-dispatch/internal/entities"
	"field-dispatch/pkg/config"
)

func AdminAccount(cfg config.SeedConfig) Account {
	return Account{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     entities.RoleAdmin,
	}
}

// DemoTechnicians cover the no-contact and WhatsApp dispatch paths. A Telegram
// chat id has to come from a real bot chat, so it is set later through the
// contact endpoint.
func DemoTechnicians(password string) []Account {
	whatsApp := "+992 900 11 22 33"
	return []Account{
		{Name: "Alex Field", Email: "alex.field@example.com", Password: password, Role: entities.RoleTechnician},
		{Name: "Wendy Route", Email: "wendy.route@example.com", Password: password, Role: entities.RoleTechnician, WhatsAppNumber: &whatsApp},
	}
}

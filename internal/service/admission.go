package service

import "github.com/timmy/panelgate/internal/domain"

// Admission is the mode decision for a resolved click.
type Admission struct {
	Test bool
	// Screen is false for test clicks, which are always admitted.
	Screen bool
	// Reserve is true when admitting consumes one unit of click quota.
	Reserve bool
	Status  domain.LinkStatus
}

// Decide chooses the admission mode for a mapping. Test mappings never touch
// quota; live mappings are screened and reserve quota at write time.
func Decide(mapping *domain.SupplierMapping) Admission {
	if mapping.IsTestLink {
		return Admission{Test: true, Status: domain.StatusSentToTest}
	}
	return Admission{Screen: true, Reserve: true, Status: domain.StatusSentToLive}
}

package controller

import (
	"fmt"
	"html"

	"github.com/kjstillabower/sunrise-lookup/internal/models"
)

func addressPopup(address string) string {
	return html.EscapeString(address)
}

func sunTimesPopup(r models.SunTimeResult) string {
	return fmt.Sprintf(
		`<strong>%s</strong><br>`+
			`<div class="mt-2"><span class="badge bg-warning text-dark"><i class="fas fa-sun me-1"></i> Sunrise: %s</span></div>`+
			`<div class="mt-1"><span class="badge bg-info"><i class="fas fa-moon me-1"></i> Sunset: %s</span></div>`+
			`<div class="mt-2 small text-muted">(Local Time: %s)</div>`,
		html.EscapeString(r.Location.Name),
		html.EscapeString(r.Local.Sunrise),
		html.EscapeString(r.Local.Sunset),
		html.EscapeString(r.Local.Timezone),
	)
}

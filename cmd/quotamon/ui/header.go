package ui

import (
	"fmt"
	"strings"
	"time"
)

// HeaderData drives the top bar: app title, plan badge, refresh status.
type HeaderData struct {
	PlanType    string
	Loading     bool
	Err         string
	LastRefresh time.Time
	Now         time.Time
}

// RenderHeader formats the single-line header bar. Error beats loading
// beats the refresh age indicator.
func RenderHeader(s Styles, d HeaderData) string {
	badge := s.PlanBadge.Render(strings.ToUpper(d.PlanType) + " Plan")

	var status string
	switch {
	case d.Err != "":
		status = s.StatusErr.Render("! " + d.Err)
	case d.Loading:
		status = s.StatusDim.Render("⟳ loading...")
	case d.LastRefresh.IsZero():
		status = s.StatusDim.Render("⟳ waiting...")
	default:
		ago := int(d.Now.Sub(d.LastRefresh).Seconds())
		if ago <= 0 {
			status = s.StatusOK.Render("⟳ just now")
		} else {
			status = s.StatusDim.Render(fmt.Sprintf("⟳ refreshed %ds ago", ago))
		}
	}

	return s.AppName.Render("quotamon") + "          " + badge + "       " + status
}

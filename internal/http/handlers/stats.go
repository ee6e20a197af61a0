package handlers

import (
	"net/http"
)

// StatsSummary serves the admin dashboard aggregates.
func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := a.Donations.Stats(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	byCategory := make([]map[string]any, 0, len(summary.ByCategory))
	for _, c := range summary.ByCategory {
		byCategory = append(byCategory, map[string]any{
			"categoryId":   c.CategoryID,
			"categoryName": c.CategoryName,
			"count":        c.Count,
			"total":        float64(c.TotalCents) / 100,
		})
	}
	byMethod := make([]map[string]any, 0, len(summary.ByPaymentMethod))
	for _, m := range summary.ByPaymentMethod {
		byMethod = append(byMethod, map[string]any{
			"paymentMethod": string(m.Method),
			"count":         m.Count,
			"total":         float64(m.TotalCents) / 100,
		})
	}
	recent := make([]donationDTO, 0, len(summary.Recent))
	for _, d := range summary.Recent {
		recent = append(recent, toDonationDTO(d))
	}

	a.json(w, http.StatusOK, map[string]any{
		"totalCount":      summary.TotalCount,
		"totalAmount":     float64(summary.TotalCents) / 100,
		"last30DayCount":  summary.Last30DayCount,
		"last30DayAmount": float64(summary.Last30DayCents) / 100,
		"byCategory":      byCategory,
		"byPaymentMethod": byMethod,
		"recent":          recent,
	})
}

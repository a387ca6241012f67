package inventory

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// KitStatus is the overall readiness of a user's supplies
type KitStatus string

const (
	KitShipshape KitStatus = "shipshape"
	KitAttention KitStatus = "attention"
	KitCritical  KitStatus = "critical"
)

// Stats summarises a user's inventory
type Stats struct {
	TotalItems        int              `json:"totalItems"`
	TotalUnits        int              `json:"totalUnits"`
	LowStockCount     int              `json:"lowStockCount"`
	ExpiringSoonCount int              `json:"expiringSoonCount"`
	ExpiredCount      int              `json:"expiredCount"`
	ByCategory        map[Category]int `json:"byCategory"`
	KitStatus         KitStatus        `json:"kitStatus"`
	WarningDays       int              `json:"warningDays"`
	GeneratedAt       time.Time        `json:"generatedAt"`
}

// ComputeStats derives stats from items. Expiring soon uses the shortest
// warning window.
func ComputeStats(items []*Item, warningDays []int, now time.Time) Stats {
	window := firstWindow(warningDays)
	stats := Stats{
		ByCategory:  make(map[Category]int),
		WarningDays: window,
		GeneratedAt: now,
	}

	for _, it := range items {
		stats.TotalItems++
		stats.TotalUnits += it.Quantity
		stats.ByCategory[it.Category]++
		if it.IsLowStock() {
			stats.LowStockCount++
		}
		if it.IsExpired(now) {
			stats.ExpiredCount++
		} else if it.ExpiresWithin(now, window) {
			stats.ExpiringSoonCount++
		}
	}

	switch {
	case stats.ExpiredCount == 0 && stats.LowStockCount == 0 && stats.ExpiringSoonCount == 0:
		stats.KitStatus = KitShipshape
	case stats.ExpiredCount > 0 || stats.LowStockCount > 2:
		stats.KitStatus = KitCritical
	default:
		stats.KitStatus = KitAttention
	}
	return stats
}

// AlertType names the condition an alert reports
type AlertType string

const (
	AlertLowStock AlertType = "low-stock"
	AlertExpiring AlertType = "expiring"
	AlertExpired  AlertType = "expired"
)

// Severity ranks alerts
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a derived, unstored notice about one item
type Alert struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	ItemName  string    `json:"itemName"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// BuildAlerts derives alerts for items. Expired and out-of-stock items are
// critical; low stock and expiry within the widest warning window are
// warnings, escalated to critical inside the shortest window.
func BuildAlerts(items []*Item, warningDays []int, now time.Time) []Alert {
	shortest, widest := firstWindow(warningDays), lastWindow(warningDays)
	alerts := make([]Alert, 0)

	for _, it := range items {
		if it.IsExpired(now) {
			alerts = append(alerts, newAlert(it, AlertExpired, SeverityCritical, now,
				fmt.Sprintf("%s expired on %s", it.Name, it.ExpirationDate.Format(time.DateOnly))))
		} else if it.ExpiresWithin(now, widest) {
			severity := SeverityWarning
			if it.ExpiresWithin(now, shortest) {
				severity = SeverityCritical
			}
			days := int(it.ExpirationDate.Sub(now).Hours() / 24)
			alerts = append(alerts, newAlert(it, AlertExpiring, severity, now,
				fmt.Sprintf("%s expires in %d days", it.Name, days)))
		}

		if it.IsLowStock() {
			severity := SeverityWarning
			if it.Quantity == 0 {
				severity = SeverityCritical
			}
			alerts = append(alerts, newAlert(it, AlertLowStock, severity, now,
				fmt.Sprintf("%s is low: %d left, minimum %d", it.Name, it.Quantity, it.MinQuantity)))
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) > severityRank(alerts[j].Severity)
	})
	return alerts
}

func newAlert(it *Item, typ AlertType, severity Severity, now time.Time, message string) Alert {
	return Alert{
		ID:        fmt.Sprintf("%s:%s", typ, it.ID),
		ItemID:    it.ID,
		ItemName:  it.Name,
		Type:      typ,
		Severity:  severity,
		Message:   message,
		CreatedAt: now,
	}
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// DefaultWarningDays applies when a user has no warning windows configured
const DefaultWarningDays = 30

func firstWindow(days []int) int {
	if len(days) == 0 {
		return DefaultWarningDays
	}
	return slices.Min(days)
}

func lastWindow(days []int) int {
	if len(days) == 0 {
		return DefaultWarningDays
	}
	return slices.Max(days)
}

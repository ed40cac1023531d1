package productive

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"

	"autotime/internal/timeutil"
)

// Booking methods as used by the bookings API.
const (
	bookingMethodPerDay     = 1
	bookingMethodPercentage = 2
	bookingMethodTotalHours = 3
)

const fullDayMinutes = 480

// BookingAttributes are the fields of a bookings resource the time
// computation needs.
type BookingAttributes struct {
	StartedOn       string   `json:"started_on"`
	EndedOn         string   `json:"ended_on"`
	Time            int      `json:"time"`
	Percentage      *float64 `json:"percentage"`
	TotalTime       *int     `json:"total_time"`
	BookingMethodID int      `json:"booking_method_id"`
}

type serviceAttributes struct {
	Name   string      `json:"name"`
	Number json.Number `json:"number"`
}

type dealAttributes struct {
	Name string `json:"name"`
}

type companyAttributes struct {
	Name string `json:"name"`
}

// ResolvedBooking is a booking joined with its service, deal, and company
// records, plus the computed minutes for the target day.
type ResolvedBooking struct {
	BookingID     string
	ServiceID     string
	ServiceNumber string
	BilledClient  *string
	DealID        string
	ProjectID     string
	ProjectName   string
	ServiceName   string
	TimeMinutes   int
}

// FetchBookings lists the person's bookings overlapping the given date and
// resolves each through its service/deal/company relationships. A booking
// whose relationships cannot be resolved is logged and dropped; the rest
// proceed.
func (c *HTTPClient) FetchBookings(ctx context.Context, personID, date string) ([]ResolvedBooking, error) {
	c.logger.Info("fetching bookings", "person", personID, "date", date)

	params := url.Values{}
	params.Set("filter[person_id]", personID)
	params.Set("filter[after]", date)
	params.Set("filter[before]", date)
	params.Set("include", "service,deal,deal.company")

	bookings, included, err := c.getAll(ctx, "bookings", params)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if len(bookings) == 0 {
		c.logger.Warn("no bookings found for this date", "date", date)
		return nil, nil
	}
	c.logger.Info("bookings found", "count", len(bookings))

	related := includedMap(included)
	resolved := make([]ResolvedBooking, 0, len(bookings))

	for _, booking := range bookings {
		entry, err := c.resolveBooking(ctx, booking, related)
		if err != nil {
			c.logger.Error("failed to resolve booking", "booking", booking.ID, "error", err)
			continue
		}
		resolved = append(resolved, entry)
		c.logger.Info("booking resolved",
			"service", entry.ServiceName, "minutes", entry.TimeMinutes, "service_id", entry.ServiceID)
	}

	return resolved, nil
}

func (c *HTTPClient) resolveBooking(ctx context.Context, booking Resource, related map[string]Resource) (ResolvedBooking, error) {
	serviceRef, ok := booking.relationshipRef("service")
	if !ok {
		return ResolvedBooking{}, fmt.Errorf("booking %s has no service relationship", booking.ID)
	}

	service, ok := related["services:"+serviceRef.ID]
	if !ok {
		fetched, err := c.fetchResource(ctx, "services/"+serviceRef.ID)
		if err != nil {
			return ResolvedBooking{}, fmt.Errorf("fetch service %s: %w", serviceRef.ID, err)
		}
		service = fetched
	}

	var serviceAttrs serviceAttributes
	if err := json.Unmarshal(service.Attributes, &serviceAttrs); err != nil {
		return ResolvedBooking{}, fmt.Errorf("decode service %s attributes: %w", service.ID, err)
	}

	var bookingAttrs BookingAttributes
	if err := json.Unmarshal(booking.Attributes, &bookingAttrs); err != nil {
		return ResolvedBooking{}, fmt.Errorf("decode booking %s attributes: %w", booking.ID, err)
	}

	entry := ResolvedBooking{
		BookingID:     booking.ID,
		ServiceID:     service.ID,
		ServiceNumber: serviceAttrs.Number.String(),
		ProjectID:     service.ID,
		ProjectName:   serviceAttrs.Name,
		ServiceName:   serviceAttrs.Name,
		TimeMinutes:   BookingTimeForDay(bookingAttrs),
	}
	if entry.ServiceNumber == "" {
		entry.ServiceNumber = service.ID
	}

	// Deal and company are best effort: a booking without them still counts,
	// it just has no billed client.
	if dealRef, ok := booking.relationshipRef("deal"); ok {
		entry.DealID = dealRef.ID
		if deal, ok := related["deals:"+dealRef.ID]; ok {
			var dealAttrs dealAttributes
			if err := json.Unmarshal(deal.Attributes, &dealAttrs); err == nil && dealAttrs.Name != "" {
				entry.ProjectName = dealAttrs.Name
			}
			if projectRef, ok := deal.relationshipRef("project"); ok {
				entry.ProjectID = projectRef.ID
			}
			if companyRef, ok := deal.relationshipRef("company"); ok {
				if company, ok := related["companies:"+companyRef.ID]; ok {
					var companyAttrs companyAttributes
					if err := json.Unmarshal(company.Attributes, &companyAttrs); err == nil && companyAttrs.Name != "" {
						name := companyAttrs.Name
						entry.BilledClient = &name
					}
				}
			}
		}
	}

	return entry, nil
}

func (c *HTTPClient) fetchResource(ctx context.Context, path string) (Resource, error) {
	doc, err := c.get(ctx, path, nil)
	if err != nil {
		return Resource{}, err
	}
	resources := doc.resources()
	if len(resources) == 0 {
		return Resource{}, fmt.Errorf("empty response for %s", path)
	}
	return resources[0], nil
}

// BookingTimeForDay computes the minutes a booking allocates to a single day.
// Rounding is round half up throughout.
func BookingTimeForDay(attrs BookingAttributes) int {
	switch attrs.BookingMethodID {
	case bookingMethodPerDay:
		return attrs.Time
	case bookingMethodPercentage:
		pct := 100.0
		if attrs.Percentage != nil {
			pct = *attrs.Percentage
		}
		return int(math.Round(pct / 100 * fullDayMinutes))
	case bookingMethodTotalHours:
		if attrs.TotalTime == nil || *attrs.TotalTime == 0 {
			return fullDayMinutes
		}
		days := 1
		start, startErr := timeutil.ParseDay(attrs.StartedOn)
		end, endErr := timeutil.ParseDay(attrs.EndedOn)
		if startErr == nil && endErr == nil {
			days = timeutil.InclusiveDays(start, end)
		}
		return int(math.Round(float64(*attrs.TotalTime) / float64(days)))
	default:
		if attrs.Time != 0 {
			return attrs.Time
		}
		return fullDayMinutes
	}
}

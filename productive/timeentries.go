package productive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// TimeEntry is a flattened time_entries resource.
type TimeEntry struct {
	ID        string
	Date      string
	Time      int
	Note      string
	ServiceID string
}

type timeEntryAttributes struct {
	Date string `json:"date"`
	Time int    `json:"time"`
	Note string `json:"note"`
}

// ListTimeEntries returns the person's existing entries for the given date.
func (c *HTTPClient) ListTimeEntries(ctx context.Context, personID, date string) ([]TimeEntry, error) {
	params := url.Values{}
	params.Set("filter[person_id]", personID)
	params.Set("filter[after]", date)
	params.Set("filter[before]", date)

	resources, _, err := c.getAll(ctx, "time_entries", params)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	entries := make([]TimeEntry, 0, len(resources))
	for _, resource := range resources {
		entries = append(entries, flattenTimeEntry(resource))
	}
	return entries, nil
}

func flattenTimeEntry(resource Resource) TimeEntry {
	entry := TimeEntry{ID: resource.ID}

	var attrs timeEntryAttributes
	if err := json.Unmarshal(resource.Attributes, &attrs); err == nil {
		entry.Date = attrs.Date
		entry.Time = attrs.Time
		entry.Note = attrs.Note
	}
	if ref, ok := resource.relationshipRef("service"); ok {
		entry.ServiceID = ref.ID
	}
	return entry
}

// FindExistingEntry returns the first entry referencing the service id, if
// any.
func FindExistingEntry(entries []TimeEntry, serviceID string) (TimeEntry, bool) {
	for _, entry := range entries {
		if entry.ServiceID != "" && entry.ServiceID == serviceID {
			return entry, true
		}
	}
	return TimeEntry{}, false
}

type createTimeEntryRequest struct {
	Data createTimeEntryData `json:"data"`
}

type createTimeEntryData struct {
	Type          string                   `json:"type"`
	Attributes    timeEntryAttributes      `json:"attributes"`
	Relationships map[string]createRelData `json:"relationships"`
}

type createRelData struct {
	Data ResourceRef `json:"data"`
}

// CreateTimeEntry posts a new time entry for the booking's service. It does
// not check for duplicates; the submission controller does that first.
func (c *HTTPClient) CreateTimeEntry(ctx context.Context, personID, date string, booking ResolvedBooking, note string) (TimeEntry, error) {
	body := createTimeEntryRequest{
		Data: createTimeEntryData{
			Type: "time_entries",
			Attributes: timeEntryAttributes{
				Date: date,
				Time: booking.TimeMinutes,
				Note: note,
			},
			Relationships: map[string]createRelData{
				"person":  {Data: ResourceRef{Type: "people", ID: personID}},
				"service": {Data: ResourceRef{Type: "services", ID: booking.ServiceID}},
			},
		},
	}

	doc, err := c.post(ctx, "time_entries", body)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("create time entry: %w", err)
	}

	resources := doc.resources()
	if len(resources) == 0 {
		return TimeEntry{}, fmt.Errorf("create time entry: empty response")
	}
	return flattenTimeEntry(resources[0]), nil
}

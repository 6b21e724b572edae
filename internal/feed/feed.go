package feed

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"
	qrcode "github.com/skip2/go-qrcode"

	"lynck-space/internal/config"
	"lynck-space/internal/storage"
)

// Read-only ICS feed of a user's events, for subscribing from external
// calendar applications.

const PRODUCT_ID = "-//Lynck Space//Calendar Feed//EN"

const LOCAL_TIME_LAYOUT = "2006-01-02T15:04:05"

// WriteICS renders the events as an iCalendar stream. Events whose stored
// timestamps do not parse are left out rather than failing the whole feed.
func WriteICS(w io.Writer, events []storage.CalendarEvent) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, PRODUCT_ID)

	for i := range events {
		component, err := eventComponent(&events[i])
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, component)
	}

	// go-ical refuses to encode a calendar without components, but an empty
	// feed is still a valid subscription target.
	if len(cal.Children) == 0 {
		_, err := io.WriteString(w,
			"BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:"+PRODUCT_ID+"\r\nEND:VCALENDAR\r\n")
		return err
	}

	return ical.NewEncoder(w).Encode(cal)
}

func eventComponent(event *storage.CalendarEvent) (*ical.Component, error) {
	start, err := time.ParseInLocation(LOCAL_TIME_LAYOUT, event.StartDateTime, time.UTC)
	if err != nil {
		return nil, err
	}
	end, err := time.ParseInLocation(LOCAL_TIME_LAYOUT, event.EndDateTime, time.UTC)
	if err != nil {
		return nil, err
	}

	e := ical.NewEvent()
	e.Props.SetText(ical.PropUID, event.ID+"@lynck.space")
	e.Props.SetText(ical.PropSummary, event.Title)
	if event.Description != "" {
		e.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Category != "" {
		e.Props.SetText(ical.PropCategories, event.Category)
	}
	e.Props.SetDateTime(ical.PropDateTimeStamp, event.UpdatedAt.UTC())
	e.Props.SetDateTime(ical.PropDateTimeStart, start)
	e.Props.SetDateTime(ical.PropDateTimeEnd, end)

	return e.Component, nil
}

// URL builds the public subscription URL for a feed token.
func URL(token string) string {
	return fmt.Sprintf("%s/calendar/feed/%s", config.Cfg.BaseURL, token)
}

// QR renders the subscription URL as a PNG QR code, for scanning the feed
// into a phone's calendar app.
func QR(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, config.QR_IMAGE_SIZE)
}

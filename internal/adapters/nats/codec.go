package natsadapter

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/staymap/internal/core/domain"
)

const (
	// SubjectPropertyAll matches every catalog property event.
	SubjectPropertyAll = "catalog.property.>"

	subjectPropertyPrefix = "catalog.property."

	// ContentTypeProtobuf is set on every event message.
	ContentTypeProtobuf = "application/protobuf"
)

// PropertySubject returns catalog.property.<city>.<kind>.
func PropertySubject(city string, kind domain.PropertyEventKind) string {
	return subjectPropertyPrefix + CityToken(city) + "." + string(kind)
}

// CitySubject matches every event for one city.
func CitySubject(city string) string {
	return subjectPropertyPrefix + CityToken(city) + ".*"
}

// CityToken turns a city name into a single subject token.
func CityToken(city string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(city)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// EncodePropertyEvent serialises an event as a protobuf Struct.
func EncodePropertyEvent(e *domain.PropertyEvent) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"kind":        string(e.Kind),
		"property_id": e.PropertyID,
		"city":        e.City,
		"time":        e.Time.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return proto.Marshal(s)
}

// DecodePropertyEvent parses a payload written by EncodePropertyEvent.
func DecodePropertyEvent(data []byte) (*domain.PropertyEvent, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	fields := s.GetFields()

	e := &domain.PropertyEvent{
		Kind:       domain.PropertyEventKind(fields["kind"].GetStringValue()),
		PropertyID: fields["property_id"].GetStringValue(),
		City:       fields["city"].GetStringValue(),
	}
	if e.PropertyID == "" {
		return nil, fmt.Errorf("decode event: missing property_id")
	}
	switch e.Kind {
	case domain.PropertyUpserted, domain.PropertyRemoved:
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", e.Kind)
	}
	if ts := fields["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("decode event time: %w", err)
		}
		e.Time = t
	}
	return e, nil
}

// EventJSON converts a protobuf event payload to JSON for browser clients.
func EventJSON(data []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return protojson.Marshal(&s)
}

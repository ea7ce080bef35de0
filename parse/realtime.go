package parse

import (
	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/pkg/errors"
	proto "google.golang.org/protobuf/proto"
)

// ErrMalformedFeed marks a payload that could not be decoded as a
// supported GTFS Realtime FeedMessage.
var ErrMalformedFeed = errors.New("malformed realtime feed")

// ParseRealtime decodes one GTFS Realtime FeedMessage. Pure function
// over the payload bytes; no partial recovery is attempted. The
// merger operates on the returned bindings directly.
func ParseRealtime(data []byte) (*gtfsrt.FeedMessage, error) {
	feed := &gtfsrt.FeedMessage{}
	if err := proto.Unmarshal(data, feed); err != nil {
		return nil, errors.Wrapf(ErrMalformedFeed, "unmarshaling protobuf: %v", err)
	}

	header := feed.GetHeader()

	version := header.GetGtfsRealtimeVersion()
	if version != "2.0" && version != "1.0" {
		return nil, errors.Wrapf(ErrMalformedFeed, "version %s not supported", version)
	}

	if header.GetIncrementality() != gtfsrt.FeedHeader_FULL_DATASET {
		return nil, errors.Wrapf(ErrMalformedFeed, "feed incrementality %s not supported", header.GetIncrementality())
	}

	return feed, nil
}

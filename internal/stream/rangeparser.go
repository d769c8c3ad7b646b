package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const rangeUnitPrefix = "bytes="

// ByteRange is an inclusive, already clamped byte interval.
type ByteRange struct {
	Start int64
	End   int64
}

func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange renders the Content-Range header value.
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// RangeOutcome is either a full response or a partial one carrying Range.
type RangeOutcome struct {
	Partial bool
	Range   ByteRange
}

var full = RangeOutcome{}

// ParseRange interprets a Range header against a resource of total bytes.
// Anything it cannot honour yields a full response; it never rejects.
// Only the first range of a multi-range request is used and the suffix form
// ("bytes=-N") is treated as malformed.
func ParseRange(header string, total int64) RangeOutcome {
	if header == "" || total <= 0 {
		return full
	}
	if !strings.HasPrefix(header, rangeUnitPrefix) {
		return full
	}

	rangeSet := strings.TrimPrefix(header, rangeUnitPrefix)
	if i := strings.IndexByte(rangeSet, ','); i >= 0 {
		rangeSet = rangeSet[:i]
	}
	rangeSet = strings.TrimSpace(rangeSet)

	startText, endText, ok := strings.Cut(rangeSet, "-")
	if !ok || startText == "" {
		return full
	}

	start, err := strconv.ParseInt(startText, 10, 64)
	if err != nil {
		return full
	}

	end := total - 1
	if endText != "" {
		end, err = strconv.ParseInt(endText, 10, 64)
		switch {
		case err == nil:
		case errors.Is(err, strconv.ErrRange) && end > 0:
			// An end past int64 is still past the resource and clamps below.
			end = total - 1
		default:
			return full
		}
	}

	start = max(start, 0)
	end = min(end, total-1)
	if start > end {
		return full
	}

	return RangeOutcome{Partial: true, Range: ByteRange{Start: start, End: end}}
}

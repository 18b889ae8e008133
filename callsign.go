package flightlog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

/* Callsigns, as they turn up in position reports

1. Airlines mostly use the ICAO flight number: PIA301, UAE601
2. Private aircraft often use their registration: N839AL, AP-BGZ
3. Some airlines use a bare flight number (301), which needs the carrier from elsewhere
4. Various kinds of null identifiers: 00000000, ????????, or an empty string
5. Data relayed by ATC sometimes carries a one-letter suffix: SKW750R

*/

// https://en.wikipedia.org/wiki/Airline_codes#Call_signs_.28flight_identification_or_flight_ID.29
type CallsignType int

const (
	Undefined        CallsignType = iota
	JunkCallsign
	Registration     // Callsign Type A
	IcaoFlightNumber // Callsign Type C
	BareFlightNumber // carrier code omitted
)

type Callsign struct {
	Raw string

	CallsignType
	Registration string
	IcaoPrefix   string
	ATCSuffix    string // one char, when present
	Number       int64
}

var (
	// An N-number may only consist of one to five characters, must start with a digit other
	// than zero, and cannot contain the letters I or O.
	reNNumber = regexp.MustCompile("^(N[1-9][0-9A-HJ-NP-Z]{0,4})$")
	// Everyone else: a one or two character nationality prefix, a hyphen, and a mark.
	reRegistration = regexp.MustCompile("^([A-Z0-9]{1,2}-[A-Z0-9]{1,5})$")
	reIcaoFlight   = regexp.MustCompile("^([A-Z]{3})([0-9]{1,4})([A-Z]?)$")
	reBareFlight   = regexp.MustCompile("^([0-9]{2,4})$")
)

func (c Callsign) String() string {
	switch c.CallsignType {
	case IcaoFlightNumber:
		return fmt.Sprintf("%s%d", c.IcaoPrefix, c.Number) // Strips leading zeroes and ATC suffix
	default:
		return c.Raw
	}
}

func (c *Callsign) MaybeAddPrefix(prefix string) {
	if c.CallsignType == BareFlightNumber && prefix != "" {
		c.IcaoPrefix = prefix
		c.CallsignType = IcaoFlightNumber
	}
}

// NormalizeCallsign is the form callsigns are indexed and queried by.
func NormalizeCallsign(s string) string { return NewCallsign(s).String() }

// NewCallsign classifies a callsign. Surrounding whitespace, and the trailing underscores
// some receivers pad with, are ignored; the match is case-insensitive.
func NewCallsign(callsign string) (ret Callsign) {
	callsign = strings.ToUpper(strings.TrimSpace(trimCallsign(callsign)))
	ret.Raw = callsign

	if reNNumber.MatchString(callsign) || reRegistration.MatchString(callsign) {
		ret.Registration = callsign
		ret.CallsignType = Registration
		return
	}

	if icao := reIcaoFlight.FindStringSubmatch(callsign); icao != nil {
		ret.Number, _ = strconv.ParseInt(icao[2], 10, 64) // the regexp only lets digits through
		ret.IcaoPrefix = icao[1]
		ret.ATCSuffix = icao[3]
		ret.CallsignType = IcaoFlightNumber
		return
	}

	if bare := reBareFlight.FindStringSubmatch(callsign); bare != nil {
		ret.Number, _ = strconv.ParseInt(bare[1], 10, 64)
		ret.CallsignType = BareFlightNumber
		return
	}

	ret.CallsignType = JunkCallsign
	return
}

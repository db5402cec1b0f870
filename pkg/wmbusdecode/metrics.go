package wmbusdecode

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.com/d21d3q/wmbusdecode/internal/crypto"
	"gitlab.com/d21d3q/wmbusdecode/internal/frame"
)

const prometheusNamespace = "wmbusdecode"

var parseOutcomes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: prometheusNamespace,
		Name:      "parse_outcomes_total",
		Help:      "telegram parse outcomes by kind",
	},
	[]string{"outcome"})

func init() {
	prometheus.MustRegister(parseOutcomes)
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		badCRC        *frame.BadCRCError
		unknownFormat *frame.UnknownFormatError
		unknownCI     *frame.UnknownCIError
		malformedDV   *frame.MalformedDVError
	)
	switch {
	case errors.Is(err, frame.ErrTruncated):
		return "truncated"
	case errors.Is(err, frame.ErrBadMAC):
		return "bad_mac"
	case errors.Is(err, frame.ErrWrongKey):
		return "wrong_key"
	case errors.Is(err, crypto.ErrKeyRequired):
		return "key_required"
	case errors.As(err, &badCRC):
		return "bad_crc"
	case errors.As(err, &unknownFormat):
		return "unknown_format"
	case errors.As(err, &unknownCI):
		return "unknown_ci"
	case errors.As(err, &malformedDV):
		return "malformed_dv"
	}
	return "error"
}

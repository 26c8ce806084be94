package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"proteus/internal/model"
)

// Fingerprint canonically encodes parameters and benchmarks in declaration
// order and hashes the result. A morphing record stores the fingerprint it
// was computed against; any mismatch with the live setup marks it stale.
func Fingerprint(params []model.Parameter, benchmarks []model.Benchmark) string {
	parts := make([]string, 0, len(params)+len(benchmarks))
	for _, p := range params {
		powers := make([]string, len(p.MaxPower))
		for i, power := range p.MaxPower {
			powers[i] = strconv.Itoa(power)
		}
		parts = append(parts, fmt.Sprintf("p:%s:%s:%d:%s:%s:%s:%s",
			p.Name, p.LHABlock, p.LHAID,
			strings.Join(powers, ","),
			formatFloat(p.Range[0]), formatFloat(p.Range[1]),
			p.Transform))
	}
	for _, b := range benchmarks {
		values := make([]string, 0, len(params))
		for _, p := range params {
			values = append(values, formatFloat(b.Values[p.Name]))
		}
		parts = append(parts, fmt.Sprintf("b:%s:%s", b.Name, strings.Join(values, ",")))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(parts, "|")))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

package render

import (
	"strconv"

	"stealthcompany.com/dischargeformat/internal/record"
)

// Partition splits rows by discharge year. Every year in years is present in
// the result, with an empty slice when no row falls in it. Rows outside years
// are dropped.
func Partition(rows []*record.Row, years []int) map[int][]*record.Row {
	out := make(map[int][]*record.Row, len(years))
	for _, y := range years {
		out[y] = []*record.Row{}
	}
	for _, r := range rows {
		y, err := strconv.Atoi(r.String(record.DischYear))
		if err != nil {
			continue
		}
		if part, ok := out[y]; ok {
			out[y] = append(part, r)
		}
	}
	return out
}

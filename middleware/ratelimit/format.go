// utilitário pequeno para formatar valores numéricos nos headers X-RateLimit-*
// sem puxar fmt.

package ratelimit

import (
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatUnixCeil devolve t em segundos unix, arredondando frações pra cima.
func formatUnixCeil(t time.Time) string {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return strconv.FormatInt(secs, 10)
}

package redis

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/pickperfect/internal/domain/search/query"
)

// buildQueryString renders q as FT.SEARCH DIALECT 2 query text.
func buildQueryString(q query.Query) string {
	filter := buildFilter(q.Predicates())

	knn := q.KNN()
	if knn == nil {
		return filter
	}

	knnPart := "[KNN " + strconv.Itoa(knn.K) + " @" + knn.Field + " $BLOB AS " + knn.ScoreAlias + "]"
	if filter == "*" {
		return "*=>" + knnPart
	}
	return "(" + filter + ")=>" + knnPart
}

// buildFilter ANDs the predicates; "*" matches everything.
func buildFilter(preds []query.Predicate) string {
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		if s := buildPredicate(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildPredicate(p query.Predicate) string {
	switch v := p.(type) {
	case query.TextMatch:
		return buildTextMatch(v)
	case query.Range:
		return "@" + v.Field + ":[" + formatBound(v.Min, "-inf") + " " + formatBound(v.Max, "+inf") + "]"
	case query.TagIn:
		return buildTagFilter(v.Field, v.Values...)
	case query.GeoRadius:
		return "@" + v.Field + ":[" + formatFloat(v.Lon) + " " + formatFloat(v.Lat) + " " +
			formatFloat(v.RadiusKm) + " km]"
	}
	return ""
}

func buildTextMatch(m query.TextMatch) string {
	var alts []string
	if len(m.TextFields) > 0 {
		alts = append(alts, "@"+strings.Join(m.TextFields, "|")+":("+escapeQuery(m.Term)+")")
	}
	for _, f := range m.TagFields {
		alts = append(alts, buildTagFilter(f, m.Term))
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return "(" + strings.Join(alts, " | ") + ")"
}

func buildTagFilter(key string, values ...string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return "@" + key + ":{" + strings.Join(escaped, " | ") + "}"
}

func formatBound(v *float64, open string) string {
	if v == nil {
		return open
	}
	return formatFloat(*v)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
	`/`, `\/`,
	`&`, `\&`,
	`#`, `\#`,
)

// vectorToBytes packs v as little-endian float32, the layout FT.SEARCH expects for $BLOB.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

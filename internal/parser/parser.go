// Package parser turns free-text trade alerts into structured signals.
//
// Parsing is an ordered chain of independent extraction rules. Every rule
// is total: a rule that finds nothing leaves its fields empty, it never
// fails. The same text always yields the same signal.
package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"fxcopier-backend/internal/domain"
)

// symbolAliases maps channel slang to broker symbols. Unknown tokens that
// look like a symbol pass through upper-cased.
var symbolAliases = map[string]string{
	"gold":    "XAUUSD",
	"xau":     "XAUUSD",
	"eurusd":  "EURUSD",
	"gbpusd":  "GBPUSD",
	"usd/jpy": "USDJPY",
	"usdchf":  "USDCHF",
	"nas100":  "NAS100",
	"us30":    "US30",
	"us500":   "US500",
}

// aliasNames is the deterministic iteration order for the fallback
// substring scan.
var aliasNames = func() []string {
	names := make([]string, 0, len(symbolAliases))
	for name := range symbolAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

var (
	// Longest phrases first, so "buy limit" is not absorbed by "buy".
	entryRe    = regexp.MustCompile(`(?i)\b(buy limit|sell limit|buy now|sell now|buy|sell)\b`)
	rangeRe    = regexp.MustCompile(`(\d{2,6}(?:\.\d+)?)[\s–-]+(\d{2,6}(?:\.\d+)?)`)
	priceRe    = regexp.MustCompile(`@?\s*(\d{2,6}(?:\.\d+)?)`)
	slRe       = regexp.MustCompile(`(?i)(?:sl[:\s]*|stop loss[:\s]*)(\d{2,6}(?:\.\d+)?)`)
	tpRe       = regexp.MustCompile(`(?i)tp\d*[:\s]*(\d{2,6}(?:\.\d+)?)`)
	commandRe  = regexp.MustCompile(`(?i)(close half|close all|close full|partial close|breakeven|set breakeven|tighten sl|again|take profit now|tp now|hold 1/2)`)
	vipRe      = regexp.MustCompile(`(?i)\b(vip|#vip|paid)\b`)
	vipShortRe = regexp.MustCompile(`(?i)^\s*([A-Za-z0-9./]{2,12})\s+(buy|sell)\s+now\s*$`)
	tokenRe    = regexp.MustCompile(`[\s,;]+`)
	bareSymRe  = regexp.MustCompile(`^[a-z]{3,6}\d*$`)
)

// symbolScanTokens bounds the leading-token scan for a symbol.
const symbolScanTokens = 8

// NormalizeSymbol resolves an alias or upper-cases the token as-is.
func NormalizeSymbol(word string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	if sym, ok := symbolAliases[w]; ok {
		return sym
	}
	return strings.ToUpper(word)
}

// Parse extracts a Signal from raw alert text. It never fails; fields the
// text does not carry stay empty.
func Parse(text string) domain.Signal {
	sig := domain.Signal{Raw: text, EntryType: domain.EntryMarket}
	applyVIPMarker(&sig, text)
	applyCommands(&sig, text)
	applyEntryClause(&sig, text)
	applySymbolScan(&sig, text)
	applyRange(&sig, text)
	applySinglePrice(&sig, text)
	applyStopLoss(&sig, text)
	applyTakeProfits(&sig, text)
	applySymbolFallback(&sig, text)
	return sig
}

// ParseShortVIP matches the terse VIP grammar: exactly "<symbol> <buy|sell> now"
// with nothing else. It always yields a market entry with no stop or targets.
func ParseShortVIP(text string) (domain.Signal, bool) {
	m := vipShortRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return domain.Signal{}, false
	}
	return domain.Signal{
		Raw:       text,
		Symbol:    NormalizeSymbol(m[1]),
		Side:      domain.Side(strings.ToLower(m[2])),
		EntryType: domain.EntryMarket,
		VIP:       true,
	}, true
}

func applyVIPMarker(sig *domain.Signal, text string) {
	if vipRe.MatchString(text) {
		sig.VIP = true
	}
}

func applyCommands(sig *domain.Signal, text string) {
	for _, m := range commandRe.FindAllStringSubmatch(text, -1) {
		cmd := strings.ToLower(m[1])
		sig.Commands = append(sig.Commands, cmd)
		if strings.Contains(cmd, "again") {
			sig.AllowAgain = true
		}
	}
}

func applyEntryClause(sig *domain.Signal, text string) {
	m := entryRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	phrase := strings.ToLower(m[1])
	if strings.Contains(phrase, "limit") {
		sig.EntryType = domain.EntryLimit
	}
	switch {
	case strings.Contains(phrase, "buy"):
		sig.Side = domain.SideBuy
	case strings.Contains(phrase, "sell"):
		sig.Side = domain.SideSell
	}
}

func applySymbolScan(sig *domain.Signal, text string) {
	tokens := tokenRe.Split(text, -1)
	if len(tokens) > symbolScanTokens {
		tokens = tokens[:symbolScanTokens]
	}
	for _, tok := range tokens {
		norm := strings.ToLower(strings.TrimSpace(tok))
		if norm == "" {
			continue
		}
		if _, known := symbolAliases[norm]; known || bareSymRe.MatchString(norm) {
			sig.Symbol = NormalizeSymbol(norm)
			return
		}
	}
}

func applyRange(sig *domain.Signal, text string) {
	m := rangeRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	p1, err1 := strconv.ParseFloat(m[1], 64)
	p2, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return
	}
	low, high := p1, p2
	if low > high {
		low, high = high, low
	}
	mid := (p1 + p2) / 2
	sig.PriceRange = &domain.PriceRange{Low: low, High: high}
	sig.Price = &mid
	sig.EntryType = domain.EntryLimit
}

func applySinglePrice(sig *domain.Signal, text string) {
	if sig.Price != nil {
		return
	}
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	if p, err := strconv.ParseFloat(m[1], 64); err == nil {
		sig.Price = &p
	}
}

func applyStopLoss(sig *domain.Signal, text string) {
	m := slRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	if sl, err := strconv.ParseFloat(m[1], 64); err == nil {
		sig.StopLoss = &sl
	}
}

func applyTakeProfits(sig *domain.Signal, text string) {
	for _, m := range tpRe.FindAllStringSubmatch(text, -1) {
		if tp, err := strconv.ParseFloat(m[1], 64); err == nil {
			sig.TakeProfits = append(sig.TakeProfits, tp)
		}
	}
}

func applySymbolFallback(sig *domain.Signal, text string) {
	if sig.Symbol != "" {
		return
	}
	lower := strings.ToLower(text)
	for _, name := range aliasNames {
		if strings.Contains(lower, name) {
			sig.Symbol = NormalizeSymbol(name)
			return
		}
	}
}

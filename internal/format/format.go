// Package format renders the human-readable Telegram notification for a
// signal: currency-aware price formatting, risk metrics and display-time
// conversion.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/walidk/tvrelay/internal/model"
)

// quoteCurrencies is the ordered suffix-match list, most specific first so
// e.g. USDT never matches as USD. First match in this list is
// authoritative for symbols that could end in more than one quote.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB", "USD"}

// timeframeDisplay maps TradingView timeframes to display names.
var timeframeDisplay = map[string]string{
	"5":   "5m",
	"15":  "15m",
	"60":  "1h",
	"240": "4h",
	"D":   "1D",
}

const maxMessageLen = 4096

// Formatter builds notification text deterministically from a signal
// record.
type Formatter struct {
	location *time.Location
}

// NewFormatter resolves the configured display timezone. An unknown zone
// falls back to UTC rather than failing startup.
func NewFormatter(tzDisplay string) *Formatter {
	location, err := time.LoadLocation(tzDisplay)
	if err != nil {
		location = time.UTC
	}
	return &Formatter{location: location}
}

// DetectQuoteCurrency returns the quote currency of a trading pair by
// ordered suffix matching, defaulting to USDT when nothing matches.
func DetectQuoteCurrency(symbol string) string {
	symbol = strings.ToUpper(symbol)
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(symbol, quote) {
			return quote
		}
	}
	return "USDT"
}

// FormatPrice renders a price with the precision and suffix conventions
// of its quote currency.
func FormatPrice(price float64, quoteCurrency string) string {
	switch quoteCurrency {
	case "USDT", "BUSD", "USDC", "USD":
		return "$" + groupThousands(decimal.NewFromFloat(price).StringFixed(2))
	case "BTC":
		return decimal.NewFromFloat(price).StringFixed(8) + " BTC"
	case "ETH":
		return decimal.NewFromFloat(price).StringFixed(6) + " ETH"
	default:
		return decimal.NewFromFloat(price).StringFixed(4) + " " + quoteCurrency
	}
}

// RiskPercent computes |entry-stop| / entry * 100 rounded to two
// decimals.
func RiskPercent(entry, stop float64) float64 {
	if entry <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(math.Abs(entry-stop) / entry * 100)
	risk, _ := pct.Round(2).Float64()
	return risk
}

// TimeframeDisplay converts a TradingView timeframe to its display form,
// returning the raw value for unknown timeframes.
func TimeframeDisplay(timeframe string) string {
	if display, ok := timeframeDisplay[timeframe]; ok {
		return display
	}
	return timeframe
}

// ChartURL builds a TradingView chart link for the pair.
func ChartURL(symbol, timeframe string) string {
	return fmt.Sprintf("https://tradingview.com/chart/?symbol=BINANCE:%s&interval=%s", symbol, timeframe)
}

// BarTime converts an epoch-millisecond bar timestamp to the display
// timezone.
func (f *Formatter) BarTime(barTimeMs int64) string {
	return time.UnixMilli(barTimeMs).UTC().In(f.location).Format("2006-01-02 15:04 (MST)")
}

// SignalMessage renders the full notification body for a signal.
func (f *Formatter) SignalMessage(sig model.Signal) string {
	quote := DetectQuoteCurrency(sig.Symbol)
	base := strings.TrimSuffix(sig.Symbol, quote)

	var b strings.Builder
	fmt.Fprintf(&b, "🚀 **EMA BOUNCE SIGNAL** 🚀\n\n")
	fmt.Fprintf(&b, "💰 **COIN PAIR**: %s/%s\n", base, quote)
	fmt.Fprintf(&b, "⏰ **TIMEFRAME**: %s\n", TimeframeDisplay(sig.Timeframe))
	fmt.Fprintf(&b, "📅 **Signal Time**: %s\n\n", f.BarTime(sig.BarTime))
	fmt.Fprintf(&b, "📈 **TRADE DETAILS**:\n")
	fmt.Fprintf(&b, "🔵 **ENTRY**: %s\n", FormatPrice(sig.Entry, quote))
	fmt.Fprintf(&b, "🔴 **STOP LOSS**: %s\n", FormatPrice(sig.Stop, quote))
	fmt.Fprintf(&b, "🟢 **TAKE PROFIT**: %s\n\n", FormatPrice(sig.Target, quote))
	fmt.Fprintf(&b, "📊 **RISK METRICS**:\n")
	fmt.Fprintf(&b, "💸 **Risk**: %v%% (Entry to Stop)\n", RiskPercent(sig.Entry, sig.Stop))
	fmt.Fprintf(&b, "🎯 **Reward**: %.1fR (%.0f:1 Risk/Reward)\n\n", sig.RR, sig.RR)
	fmt.Fprintf(&b, "🔗 **Chart**: [View on TradingView](%s)\n\n", ChartURL(sig.Symbol, sig.Timeframe))
	fmt.Fprintf(&b, "🆔 Signal ID: %s", sig.SignalID)

	return Sanitize(b.String())
}

// Sanitize strips angle brackets and caps the message at the Telegram
// limit, cutting on a rune boundary so the emoji-heavy template never
// truncates to invalid UTF-8.
func Sanitize(text string) string {
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	if len(text) > maxMessageLen {
		cut := maxMessageLen - 6
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

// groupThousands inserts comma separators into the integer part of a
// fixed-point decimal string.
func groupThousands(s string) string {
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	if hasFrac {
		out += "." + fracPart
	}
	return out
}

package model

// WhitelistEntry is the protocol's per-asset lending row.
type WhitelistEntry struct {
	Symbol      string  `json:"symbol" db:"symbol"` // symbol code, e.g. "EOS"
	Contract    string  `json:"contract" db:"contract"`
	Feed        string  `json:"feed" db:"feed"`
	MaxLends    int     `json:"maxlends" db:"maxlends"`       // percent of the pool one account may borrow
	Lendable    string  `json:"lendable" db:"lendable"`       // pool size, wire asset string
	LendablePct float64 `json:"lendablepct" db:"lendablepct"` // share of all lendable value
	LentPct     float64 `json:"lentpct" db:"lentpct"`         // fraction of the pool already lent out
}

// Whitelist is the set of lendable assets.
type Whitelist []WhitelistEntry

// Lookup returns the entry for symbol.
func (w Whitelist) Lookup(symbol string) (WhitelistEntry, bool) {
	for _, e := range w {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return WhitelistEntry{}, false
}

// DefaultWhitelist is the bundled cold-start whitelist.
func DefaultWhitelist() Whitelist {
	return Whitelist{
		{Symbol: "IQ", Contract: "everipediaiq", Feed: "iqeos", MaxLends: 10,
			Lendable: "19009080.684 IQ", LendablePct: 0.05036351844712142, LentPct: 0},
		{Symbol: "VIG", Contract: "vig111111111", Feed: "vigeos", MaxLends: 10,
			Lendable: "141754472.4851920531 VIG", LendablePct: 0.44168123271972781, LentPct: 0.00320951642086656},
		{Symbol: "EOS", Contract: "eosio.token", Feed: "eosusd", MaxLends: 25,
			Lendable: "159456.1638 EOS", LendablePct: 0.48284858043692352, LentPct: 0.93036035023438834},
		{Symbol: "PBTC", Contract: "btc.ptokens", Feed: "btcusd", MaxLends: 25,
			Lendable: "0.21789306 PBTC", LendablePct: 0.00315673822904730, LentPct: 0},
		{Symbol: "USDT", Contract: "tethertether", Feed: "eosusdt", MaxLends: 25,
			Lendable: "15845.8616 USDT", LendablePct: 0.01759738507333527, LentPct: 1},
		{Symbol: "VIGOR", Contract: "vigortoken11", Feed: "eosvigor", MaxLends: 0,
			Lendable: "4013.5544 VIGOR", LendablePct: 0.00435254509384464, LentPct: 0},
	}
}

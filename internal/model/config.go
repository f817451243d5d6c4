package model

// ProtocolConfig mirrors the lending contract's config row. Fields keep the
// contract's fixed-point integers; use the accessors for scaled values.
type ProtocolConfig struct {
	AlphaTest   int `json:"alphatest"`   // tail confidence ×1000
	SolTarget   int `json:"soltarget"`   // downside solvency target ×10
	LSolTarget  int `json:"lsoltarget"`  // upside solvency target ×10
	MaxTesPrice int `json:"maxtesprice"` // max annual rate ×10000
	MinTesPrice int `json:"mintesprice"` // min annual rate ×10000
	Calibrate   int `json:"calibrate"`   // global calibration ×10
	MaxTesScale int `json:"maxtesscale"`
	MinTesScale int `json:"mintesscale"`
	MaxLends    int `json:"maxlends"`    // percent of a pool lendable to one account
	MaxDisc     int `json:"maxdisc"`     // reputation discount cap, percent
	MinCollat   int `json:"mincollat"`   // minimum collateral ratio, percent
	DataA       int `json:"dataa"`       // 24h withdrawal limit, USD
	DataB       int `json:"datab"`       // per-transaction limit, USD
	DataC       int `json:"datac"`       // payoff horizon scale ×100
	InitMaxSize int `json:"initmaxsize"` // max account value, USD
	DebtCeiling int `json:"debtceiling"`
	BailoutCR   int `json:"bailoutcr"`   // percent
	BailoutUpCR int `json:"bailoutupcr"` // percent
}

// DefaultProtocolConfig is the bundled cold-start table. It is used for
// non-authoritative estimates until the chain value has loaded.
func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		AlphaTest:   900,
		SolTarget:   10,
		LSolTarget:  25,
		MaxTesPrice: 5000,
		MinTesPrice: 50,
		Calibrate:   8,
		MaxTesScale: 20,
		MinTesScale: 1,
		MaxLends:    99,
		MaxDisc:     25,
		MinCollat:   111,
		DataA:       1000000,
		DataB:       1000000,
		DataC:       80,
		InitMaxSize: 1000000,
		DebtCeiling: 10000000,
		BailoutCR:   110,
		BailoutUpCR: 110,
	}
}

// Normalized returns a copy where every field the rate model depends on
// that is out of its domain is replaced by the default. The second return
// reports whether any replacement happened.
func (c ProtocolConfig) Normalized() (ProtocolConfig, bool) {
	def := DefaultProtocolConfig()
	replaced := false
	fix := func(v *int, ok bool, fallback int) {
		if !ok {
			*v = fallback
			replaced = true
		}
	}

	fix(&c.AlphaTest, c.AlphaTest > 0 && c.AlphaTest < 1000, def.AlphaTest)
	fix(&c.MinTesPrice, c.MinTesPrice >= 0, def.MinTesPrice)
	fix(&c.MaxTesPrice, c.MaxTesPrice > 0, def.MaxTesPrice)
	if c.MinTesPrice > c.MaxTesPrice {
		c.MinTesPrice, c.MaxTesPrice = def.MinTesPrice, def.MaxTesPrice
		replaced = true
	}
	fix(&c.Calibrate, c.Calibrate > 0, def.Calibrate)
	fix(&c.DataC, c.DataC > 0, def.DataC)
	fix(&c.MaxDisc, c.MaxDisc >= 0 && c.MaxDisc <= 100, def.MaxDisc)
	fix(&c.MinCollat, c.MinCollat > 0, def.MinCollat)
	fix(&c.SolTarget, c.SolTarget > 0, def.SolTarget)
	fix(&c.LSolTarget, c.LSolTarget > 0, def.LSolTarget)

	return c, replaced
}

// TailConfidence is α, the stress confidence level (e.g. 0.9).
func (c ProtocolConfig) TailConfidence() float64 { return float64(c.AlphaTest) / 1000 }

// MaxRate is the upper bound of the annual borrow rate.
func (c ProtocolConfig) MaxRate() float64 { return float64(c.MaxTesPrice) / 10000 }

// MinRate is the lower bound of the annual borrow rate.
func (c ProtocolConfig) MinRate() float64 { return float64(c.MinTesPrice) / 10000 }

// Calibration is the global volatility calibration factor.
func (c ProtocolConfig) Calibration() float64 { return float64(c.Calibrate) / 10 }

// HorizonScale scales the payoff horizon T inside the rate formula.
func (c ProtocolConfig) HorizonScale() float64 { return float64(c.DataC) / 100 }

// DiscountCap is the maximum reputation discount, as a fraction.
func (c ProtocolConfig) DiscountCap() float64 { return float64(c.MaxDisc) / 100 }

// MinCollateralRatio is the minimum collateralization allowed when borrowing.
func (c ProtocolConfig) MinCollateralRatio() float64 { return float64(c.MinCollat) / 100 }

// SolvencyTarget is the downside solvency target as stored in the contract.
func (c ProtocolConfig) SolvencyTarget() float64 { return float64(c.SolTarget) / 10 }

// LSolvencyTarget is the upside solvency target as stored in the contract.
func (c ProtocolConfig) LSolvencyTarget() float64 { return float64(c.LSolTarget) / 10 }

// BailoutRatio is the collateral ratio below which VIGOR loans are bailed out.
func (c ProtocolConfig) BailoutRatio() float64 { return float64(c.BailoutCR) / 100 }

// BailoutUpRatio is the ratio below which crypto loans are bailed out.
func (c ProtocolConfig) BailoutUpRatio() float64 { return float64(c.BailoutUpCR) / 100 }

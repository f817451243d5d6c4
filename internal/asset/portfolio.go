package asset

import (
	"encoding/json"
	"fmt"
)

// Portfolio is an ordered set of assets, unique by code. It is never mutated
// in place: Add and Without return new portfolios.
type Portfolio struct {
	assets []Asset
}

// NewPortfolio builds a portfolio, accumulating repeated codes into the
// first entry for that code.
func NewPortfolio(assets ...Asset) Portfolio {
	p := Portfolio{}
	for _, a := range assets {
		p = p.Add(a)
	}
	return p
}

// ParsePortfolio decodes wire rows such as ["100.0141 EOS", "600.0000000000 VIG"]
// into a normalized portfolio.
func ParsePortfolio(rows []string) (Portfolio, error) {
	assets := make([]Asset, 0, len(rows))
	for _, row := range rows {
		a, err := ParseNormalized(row)
		if err != nil {
			return Portfolio{}, err
		}
		assets = append(assets, a)
	}
	return NewPortfolio(assets...), nil
}

// Add returns a new portfolio with a merged in by code. A held code keeps its
// precision and position; an unheld code is appended unless the amount is zero.
func (p Portfolio) Add(a Asset) Portfolio {
	out := make([]Asset, len(p.assets), len(p.assets)+1)
	copy(out, p.assets)

	for i, held := range out {
		if held.Code == a.Code {
			out[i].Units = held.Units.Add(a.Rescale(held.Precision).Units)
			return Portfolio{assets: out}
		}
	}
	if !a.IsZero() {
		out = append(out, a)
	}
	return Portfolio{assets: out}
}

// Without returns a copy of p with code removed.
func (p Portfolio) Without(code string) Portfolio {
	out := make([]Asset, 0, len(p.assets))
	for _, a := range p.assets {
		if a.Code != code {
			out = append(out, a)
		}
	}
	return Portfolio{assets: out}
}

// Get returns the held amount of code.
func (p Portfolio) Get(code string) (Asset, bool) {
	for _, a := range p.assets {
		if a.Code == code {
			return a, true
		}
	}
	return Asset{}, false
}

// Assets returns the holdings in portfolio order.
func (p Portfolio) Assets() []Asset {
	out := make([]Asset, len(p.assets))
	copy(out, p.assets)
	return out
}

// Len returns the number of distinct codes.
func (p Portfolio) Len() int {
	return len(p.assets)
}

// Strings returns the holdings in wire form.
func (p Portfolio) Strings() []string {
	out := make([]string, len(p.assets))
	for i, a := range p.assets {
		out[i] = a.String()
	}
	return out
}

func (p Portfolio) String() string {
	return fmt.Sprintf("%v", p.Strings())
}

// MarshalJSON encodes the portfolio as a list of wire strings.
func (p Portfolio) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Strings())
}

// UnmarshalJSON decodes a list of wire strings.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var rows []string
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	parsed, err := ParsePortfolio(rows)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

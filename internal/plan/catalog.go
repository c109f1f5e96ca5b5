package plan

// Plan catalog: static reference data, read-only at runtime. Prices in
// cents (BRL). IncludedWAMessages is the per-cycle message allowance.
type Plan struct {
	Code               string `json:"code"`
	Name               string `json:"name"`
	MaxProfessionals   int    `json:"max_professionals"`
	IncludedWAMessages int    `json:"included_wa_messages"`
	PriceCents         int64  `json:"price_cents"`
}

type TopupPack struct {
	Code       string `json:"code"`
	WAMessages int    `json:"wa_messages"`
	PriceCents int64  `json:"price_cents"`
}

const (
	CodeStarter = "starter"
	CodePro     = "pro"
	CodePremium = "premium"

	StatusTrialing   = "trialing"
	StatusActive     = "active"
	StatusDelinquent = "delinquent"
	StatusCanceled   = "cancelled"
)

var catalog = map[string]Plan{
	CodeStarter: {Code: CodeStarter, Name: "Starter", MaxProfessionals: 1, IncludedWAMessages: 250, PriceCents: 4990},
	CodePro:     {Code: CodePro, Name: "Pro", MaxProfessionals: 5, IncludedWAMessages: 800, PriceCents: 9990},
	CodePremium: {Code: CodePremium, Name: "Premium", MaxProfessionals: 15, IncludedWAMessages: 2000, PriceCents: 19990},
}

var packs = map[string]TopupPack{
	"pack_100": {Code: "pack_100", WAMessages: 100, PriceCents: 1490},
	"pack_300": {Code: "pack_300", WAMessages: 300, PriceCents: 3990},
	"pack_500": {Code: "pack_500", WAMessages: 500, PriceCents: 5990},
}

// ByCode resolves a plan code, falling back to starter for unknown codes
// so entitlement resolution never fails on bad reference data.
func ByCode(code string) Plan {
	if p, ok := catalog[code]; ok {
		return p
	}
	return catalog[CodeStarter]
}

func IsKnownCode(code string) bool {
	_, ok := catalog[code]
	return ok
}

func Plans() []Plan {
	return []Plan{catalog[CodeStarter], catalog[CodePro], catalog[CodePremium]}
}

func PackByCode(code string) (TopupPack, bool) {
	p, ok := packs[code]
	return p, ok
}

func Packs() []TopupPack {
	return []TopupPack{packs["pack_100"], packs["pack_300"], packs["pack_500"]}
}

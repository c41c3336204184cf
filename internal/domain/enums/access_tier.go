package enums

type AccessTier string

const (
	AccessTierPremium AccessTier = "premium"
	AccessTierVIP     AccessTier = "vip"
)

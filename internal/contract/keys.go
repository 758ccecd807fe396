package contract

// Storage keys within a contract namespace.
const (
	keyHolder              = "holder"
	keyCounterParty        = "counter_party"
	keyHolderBalance       = "holder_balance"
	keyCounterPartyBalance = "counter_party_balance"
	keyUseFee              = "use_fee"
	keyLastUpdated         = "last_updated"
	keyDefinition          = "definition"
	keyTree                = "tree"
	keyOrChoices           = "or_choices"
	keyObservables         = "observables"
	keyObservableNames     = "observable_names"
	keyAnytimeSlots        = "anytime_slots"
)

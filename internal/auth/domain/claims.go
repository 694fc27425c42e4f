package domain

// Destination is a bit set of the tokens a claim is written to.
type Destination uint8

const (
	DestAccess Destination = 1 << iota
	DestIdentity
)

// Claim names used by the handlers.
const (
	ClaimSubject = "sub"
	ClaimName    = "name"
	ClaimEmail   = "email"
	ClaimRole    = "role"
	ClaimScope   = "scope"
)

// claimDestinations routes claims by name. Anything not listed goes to the
// access token only.
var claimDestinations = map[string]Destination{
	ClaimName:  DestAccess | DestIdentity,
	ClaimEmail: DestAccess | DestIdentity,
	ClaimRole:  DestAccess | DestIdentity,
}

// DestinationsFor returns where a claim of the given name is written.
func DestinationsFor(name string) Destination {
	if d, ok := claimDestinations[name]; ok {
		return d
	}
	return DestAccess
}

// Claim is one named, possibly multi-valued claim.
type Claim struct {
	Name         string
	Values       []string
	Destinations Destination
}

// ClaimsSet is the ordered set of claims built for one token request.
// Subject, scopes and the authentication method are carried separately
// because they map onto registered or protocol claims.
type ClaimsSet struct {
	Subject  string
	ClientID string
	Scopes   []string
	AMR      string

	claims []Claim
}

// NewClaimsSet starts a claims set for subject.
func NewClaimsSet(subject, clientID, amr string, scopes []string) *ClaimsSet {
	return &ClaimsSet{Subject: subject, ClientID: clientID, AMR: amr, Scopes: scopes}
}

// Add appends values to the named claim, creating it with the destinations
// from the routing table. Empty values are ignored.
func (cs *ClaimsSet) Add(name string, values ...string) {
	cs.AddTo(name, DestinationsFor(name), values...)
}

// AddTo is Add with explicit destinations. A claim that already exists
// keeps the destinations it was created with.
func (cs *ClaimsSet) AddTo(name string, dest Destination, values ...string) {
	vals := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return
	}
	for i := range cs.claims {
		if cs.claims[i].Name == name {
			cs.claims[i].Values = append(cs.claims[i].Values, vals...)
			return
		}
	}
	cs.claims = append(cs.claims, Claim{Name: name, Values: vals, Destinations: dest})
}

// Get returns the values of a claim.
func (cs *ClaimsSet) Get(name string) []string {
	for _, c := range cs.claims {
		if c.Name == name {
			return c.Values
		}
	}
	return nil
}

// For returns the claims written to dest, in insertion order.
func (cs *ClaimsSet) For(dest Destination) []Claim {
	out := make([]Claim, 0, len(cs.claims))
	for _, c := range cs.claims {
		if c.Destinations&dest != 0 {
			out = append(out, c)
		}
	}
	return out
}

func (cs *ClaimsSet) HasScope(scope string) bool {
	for _, s := range cs.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

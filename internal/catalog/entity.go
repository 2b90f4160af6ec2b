package catalog

// Entity is implemented by every catalog type.
type Entity interface {
	Kind() Kind
	EntityID() string
	// TenantID is the owning Client id. Clients return their own id and
	// Parents return "".
	TenantID() string
	// BusinessKey is the per-tenant unique key, or "" for kinds without one.
	BusinessKey() string
}

// Parent groups Clients under a shared owner.
type Parent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (p *Parent) Kind() Kind          { return KindParent }
func (p *Parent) EntityID() string    { return p.ID }
func (p *Parent) TenantID() string    { return "" }
func (p *Parent) BusinessKey() string { return "" }

// Client is the root of a tenant.
type Client struct {
	ID       string `json:"id"`
	ParentID string `json:"parentId,omitempty"`
	Name     string `json:"name"`
}

func (c *Client) Kind() Kind          { return KindClient }
func (c *Client) EntityID() string    { return c.ID }
func (c *Client) TenantID() string    { return c.ID }
func (c *Client) BusinessKey() string { return "" }

// Contract carries the royalty terms agreed with a payee.
type Contract struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"clientId"`
	Name             string  `json:"name"`
	AccountingPeriod string  `json:"accountingPeriod"`
	Type             string  `json:"type"`
	MinPayout        float64 `json:"minPayout"`
	PayeeID          string  `json:"payeeId,omitempty"`

	SalesTerms      []Term `json:"salesTerms"`
	ReturnsTerms    []Term `json:"returnsTerms"`
	CostsTerms      []Term `json:"costsTerms"`
	MechanicalTerms []Term `json:"mechanicalTerms"`
	ReservesTerms   []Term `json:"reservesTerms"`
}

func (c *Contract) Kind() Kind          { return KindContract }
func (c *Contract) EntityID() string    { return c.ID }
func (c *Contract) TenantID() string    { return c.ClientID }
func (c *Contract) BusinessKey() string { return c.Name }

// Terms returns a pointer to the term list selected by l, or nil for an
// unknown list.
func (c *Contract) Terms(l TermList) *[]Term {
	switch l {
	case TermsSales:
		return &c.SalesTerms
	case TermsReturns:
		return &c.ReturnsTerms
	case TermsCosts:
		return &c.CostsTerms
	case TermsMechanical:
		return &c.MechanicalTerms
	case TermsReserves:
		return &c.ReservesTerms
	}
	return nil
}

// Payee receives royalty statements.
type Payee struct {
	ID          string `json:"id"`
	ClientID    string `json:"clientId"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	VatNo       string `json:"vatNo"`
	BankName    string `json:"bankName"`
	BankAddress string `json:"bankAddress"`
	AccountNo   string `json:"accountNo"`
	SortCode    string `json:"sortCode"`
	IBAN        string `json:"iban"`
}

func (p *Payee) Kind() Kind          { return KindPayee }
func (p *Payee) EntityID() string    { return p.ID }
func (p *Payee) TenantID() string    { return p.ClientID }
func (p *Payee) BusinessKey() string { return p.VatNo }

// Campaign groups releases, tracks and works for reporting.
type Campaign struct {
	ID         string   `json:"id"`
	ClientID   string   `json:"clientId"`
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Identifier string   `json:"identifier"`
	ContractID string   `json:"contractId,omitempty"`
	ReleaseIDs []string `json:"releaseIds"`
	TrackIDs   []string `json:"trackIds"`
	WorkIDs    []string `json:"workIds"`
}

func (c *Campaign) Kind() Kind          { return KindCampaign }
func (c *Campaign) EntityID() string    { return c.ID }
func (c *Campaign) TenantID() string    { return c.ClientID }
func (c *Campaign) BusinessKey() string { return c.Identifier }

// Release is a product (album, single) identified by catalogue number.
type Release struct {
	ID                    string   `json:"id"`
	ClientID              string   `json:"clientId"`
	CatNo                 string   `json:"catNo"`
	Title                 string   `json:"title"`
	Artist                string   `json:"artist"`
	Aliases               []string `json:"aliases"`
	Barcode               string   `json:"barcode"`
	Format                string   `json:"format"`
	ReleaseDate           string   `json:"releaseDate"`
	PriceCategory         string   `json:"priceCategory"`
	ExemptFromMechanicals bool     `json:"exemptFromMechanicals"`
	TrackIDs              []string `json:"trackIds"`
	Rights
}

func (r *Release) Kind() Kind          { return KindRelease }
func (r *Release) EntityID() string    { return r.ID }
func (r *Release) TenantID() string    { return r.ClientID }
func (r *Release) BusinessKey() string { return r.CatNo }

// Track is a sound recording identified by ISRC.
type Track struct {
	ID       string   `json:"id"`
	ClientID string   `json:"clientId"`
	ISRC     string   `json:"isrc"`
	Title    string   `json:"title"`
	Version  string   `json:"version"`
	Artist   string   `json:"artist"`
	Aliases  []string `json:"aliases"`
	Duration string   `json:"duration"`
	Rights
}

func (t *Track) Kind() Kind          { return KindTrack }
func (t *Track) EntityID() string    { return t.ID }
func (t *Track) TenantID() string    { return t.ClientID }
func (t *Track) BusinessKey() string { return t.ISRC }

// Work is a composition identified by a publisher identifier (e.g. ISWC).
type Work struct {
	ID         string   `json:"id"`
	ClientID   string   `json:"clientId"`
	Identifier string   `json:"identifier"`
	Title      string   `json:"title"`
	Composer   string   `json:"composer"`
	Publisher  string   `json:"publisher"`
	Aliases    []string `json:"aliases"`
	Rights
}

func (w *Work) Kind() Kind          { return KindWork }
func (w *Work) EntityID() string    { return w.ID }
func (w *Work) TenantID() string    { return w.ClientID }
func (w *Work) BusinessKey() string { return w.Identifier }

// Cost is an expense recouped against one or more contracts.
type Cost struct {
	ID                    string   `json:"id"`
	ClientID              string   `json:"clientId"`
	Description           string   `json:"description"`
	Category              string   `json:"category"`
	Amount                float64  `json:"amount"`
	Date                  string   `json:"date"`
	AssociatedContractIDs []string `json:"associatedContractIds"`
}

func (c *Cost) Kind() Kind          { return KindCost }
func (c *Cost) EntityID() string    { return c.ID }
func (c *Cost) TenantID() string    { return c.ClientID }
func (c *Cost) BusinessKey() string { return "" }

// RightsContractIDs returns the contract ids an entity grants visibility to:
// the union of both rights lists for rights-bearing kinds, the associated
// contracts for a Cost, and nil for everything else.
func RightsContractIDs(e Entity) []string {
	switch v := e.(type) {
	case *Release:
		return v.ContractIDs()
	case *Track:
		return v.ContractIDs()
	case *Work:
		return v.ContractIDs()
	case *Cost:
		return v.AssociatedContractIDs
	}
	return nil
}

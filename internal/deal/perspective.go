package deal

import "github.com/google/uuid"

// The perspective transforms move a deal between its storage orientation
// (client_to_partner/partner_to_client) and the viewer-relative orientation
// (inbound/outbound). Each returns a new Deal value and leaves the receiver
// untouched. Directional payloads are shared rather than copied: they are
// read-only once validated.

// FromClientView returns the deal in storage orientation, reading the viewer
// slots as the client's inbound/outbound.
func (d *Deal) FromClientView() *Deal {
	out := *d
	out.ClientToPartner, out.PartnerToClient = d.Outbound, d.Inbound
	out.Inbound, out.Outbound = nil, nil
	out.Direction = nil
	return &out
}

// FromPartnerView returns the deal in storage orientation, reading the viewer
// slots as the partner's inbound/outbound.
func (d *Deal) FromPartnerView() *Deal {
	out := *d
	out.ClientToPartner, out.PartnerToClient = d.Inbound, d.Outbound
	out.Inbound, out.Outbound = nil, nil
	out.Direction = nil
	return &out
}

// ForClientView returns the deal oriented for the client: traffic the partner
// sends the client is inbound, traffic the client sends the partner is
// outbound.
func (d *Deal) ForClientView() *Deal {
	out := *d
	out.Inbound, out.Outbound = d.PartnerToClient, d.ClientToPartner
	out.ClientToPartner, out.PartnerToClient = nil, nil
	out.Direction = out.viewerDirection()
	return &out
}

// ForPartnerView returns the deal oriented for the partner.
func (d *Deal) ForPartnerView() *Deal {
	out := *d
	out.Inbound, out.Outbound = d.ClientToPartner, d.PartnerToClient
	out.ClientToPartner, out.PartnerToClient = nil, nil
	out.Direction = out.viewerDirection()
	return &out
}

// viewerDirection names the single populated side of a unilateral deal in
// viewer orientation. Bilateral deals carry no direction.
func (d *Deal) viewerDirection() *Direction {
	if d.Laterality != Unilateral {
		return nil
	}
	dir := DirectionOutbound
	if d.Inbound != nil {
		dir = DirectionInbound
	}
	return &dir
}

// ViewFor renders the deal viewer-relative for the given organisation: the
// client's view when orgUUID is the client, the partner's otherwise.
func (d *Deal) ViewFor(orgUUID uuid.UUID) *Deal {
	if orgUUID == d.ClientUUID {
		return d.ForClientView()
	}
	return d.ForPartnerView()
}

// StoredFrom converts a viewer-relative deal received from the given
// organisation back to storage orientation.
func (d *Deal) StoredFrom(orgUUID uuid.UUID) *Deal {
	if orgUUID == d.ClientUUID {
		return d.FromClientView()
	}
	return d.FromPartnerView()
}

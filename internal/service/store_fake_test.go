package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bloodbank-api/internal/models"
	"github.com/noah-isme/bloodbank-api/pkg/database"
	"github.com/noah-isme/bloodbank-api/pkg/events"
)

type memState struct {
	donors    map[string]models.Donor
	donations map[string]models.Donation
	units     map[string]models.InventoryUnit
	requests  map[string]models.BloodRequest
	centers   map[string]models.Center
	issues    []models.BloodIssue
	audit     []models.AuditLogEntry
}

func (s memState) clone() memState {
	out := memState{
		donors:    make(map[string]models.Donor, len(s.donors)),
		donations: make(map[string]models.Donation, len(s.donations)),
		units:     make(map[string]models.InventoryUnit, len(s.units)),
		requests:  make(map[string]models.BloodRequest, len(s.requests)),
		centers:   make(map[string]models.Center, len(s.centers)),
		issues:    append([]models.BloodIssue(nil), s.issues...),
		audit:     append([]models.AuditLogEntry(nil), s.audit...),
	}
	for k, v := range s.donors {
		out.donors[k] = v
	}
	for k, v := range s.donations {
		out.donations[k] = v
	}
	for k, v := range s.units {
		out.units[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	for k, v := range s.centers {
		out.centers[k] = v
	}
	return out
}

// memStore is an in-memory inventory store. WithinTx serialises transactions and
// restores the pre-transaction snapshot when the unit of work fails.
type memStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memState
}

func newMemStore() *memStore {
	return &memStore{state: memState{}.clone()}
}

func (m *memStore) WithinTx(ctx context.Context, fn database.TxFunc) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) donorRepo() *memDonors       { return &memDonors{m} }
func (m *memStore) donationRepo() *memDonations { return &memDonations{m} }
func (m *memStore) unitRepo() *memUnits         { return &memUnits{m} }
func (m *memStore) requestRepo() *memRequests   { return &memRequests{m} }
func (m *memStore) issueRepo() *memIssues       { return &memIssues{m} }
func (m *memStore) auditRepo() *memAudit        { return &memAudit{m} }
func (m *memStore) centerRepo() *memCenters     { return &memCenters{m} }

func (m *memStore) seedCenter(name string, active bool) models.Center {
	m.mu.Lock()
	defer m.mu.Unlock()
	center := models.Center{ID: uuid.NewString(), Name: name, Location: "Main St", Active: active, CreatedAt: time.Now().UTC()}
	m.state.centers[center.ID] = center
	return center
}

// seedUnit stocks an AVAILABLE unit for a synthetic completed donation.
func (m *memStore) seedUnit(id string, group models.BloodGroup, component string, collected, expiry time.Time) models.InventoryUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	donor := models.Donor{ID: uuid.NewString(), FullName: "Seed " + id, BloodGroup: group, Contact: "seed-" + id, Sex: models.SexMale}
	m.state.donors[donor.ID] = donor
	completed := collected
	donation := models.Donation{ID: uuid.NewString(), DonorID: donor.ID, CenterID: "seed-center", DonationDate: dateOnly(collected), Status: models.DonationStatusCompleted, CompletedAt: &completed}
	m.state.donations[donation.ID] = donation
	unit := models.InventoryUnit{ID: id, DonationID: donation.ID, ComponentType: component, CollectionDate: collected, ExpiryDate: expiry, Status: models.UnitStatusAvailable}
	m.state.units[unit.ID] = unit
	return unit
}

func (m *memStore) unit(id string) models.InventoryUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.units[id]
}

func (m *memStore) unitsForDonation(donationID string) []models.InventoryUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.InventoryUnit
	for _, u := range m.state.units {
		if u.DonationID == donationID {
			out = append(out, u)
		}
	}
	return out
}

func (m *memStore) auditActions(action string) []models.AuditLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AuditLogEntry
	for _, e := range m.state.audit {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) issueCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.issues)
}

func (m *memStore) bloodGroupOf(unit models.InventoryUnit) models.BloodGroup {
	donation := m.state.donations[unit.DonationID]
	return m.state.donors[donation.DonorID].BloodGroup
}

type memDonors struct{ *memStore }

func (r *memDonors) Upsert(ctx context.Context, exec sqlx.ExtContext, donor *models.Donor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.state.donors {
		if existing.Contact == donor.Contact {
			existing.FullName = donor.FullName
			existing.UpdatedAt = time.Now().UTC()
			r.state.donors[id] = existing
			*donor = existing
			return nil
		}
	}
	donor.ID = uuid.NewString()
	donor.CreatedAt = time.Now().UTC()
	donor.UpdatedAt = donor.CreatedAt
	r.state.donors[donor.ID] = *donor
	return nil
}

func (r *memDonors) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donor, error) {
	return r.FindByID(ctx, id)
}

func (r *memDonors) FindByID(ctx context.Context, id string) (*models.Donor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	donor, ok := r.state.donors[id]
	if !ok {
		return nil, fmt.Errorf("get donor: %w", sql.ErrNoRows)
	}
	return &donor, nil
}

func (r *memDonors) List(ctx context.Context, filter models.DonorFilter) ([]models.Donor, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Donor
	for _, d := range r.state.donors {
		if filter.BloodGroup != "" && d.BloodGroup != filter.BloodGroup {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(d.FullName), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, len(out), nil
}

func (r *memDonors) HasIssuedUnits(ctx context.Context, exec sqlx.ExtContext, donorID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.state.units {
		if r.state.donations[u.DonationID].DonorID == donorID && u.Status == models.UnitStatusIssued {
			return true, nil
		}
	}
	return false, nil
}

func (r *memDonors) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for donationID, donation := range r.state.donations {
		if donation.DonorID != id {
			continue
		}
		for unitID, u := range r.state.units {
			if u.DonationID == donationID {
				delete(r.state.units, unitID)
			}
		}
		delete(r.state.donations, donationID)
	}
	delete(r.state.donors, id)
	return nil
}

type memDonations struct{ *memStore }

func (r *memDonations) Create(ctx context.Context, exec sqlx.ExtContext, donation *models.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if donation.ID == "" {
		donation.ID = uuid.NewString()
	}
	r.state.donations[donation.ID] = *donation
	return nil
}

func (r *memDonations) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	donation, ok := r.state.donations[id]
	if !ok {
		return nil, fmt.Errorf("lock donation: %w", sql.ErrNoRows)
	}
	return &donation, nil
}

func (r *memDonations) FindDetailByID(ctx context.Context, id string) (*models.DonationDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	donation, ok := r.state.donations[id]
	if !ok {
		return nil, fmt.Errorf("get donation: %w", sql.ErrNoRows)
	}
	donor := r.state.donors[donation.DonorID]
	return &models.DonationDetail{
		Donation:   donation,
		DonorName:  donor.FullName,
		BloodGroup: donor.BloodGroup,
		CenterName: r.state.centers[donation.CenterID].Name,
	}, nil
}

func (r *memDonations) LastCompletedDate(ctx context.Context, exec sqlx.ExtContext, donorID string) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *time.Time
	for _, d := range r.state.donations {
		if d.DonorID != donorID || d.Status != models.DonationStatusCompleted {
			continue
		}
		date := d.DonationDate
		if d.CompletedAt != nil {
			date = dateOnly(*d.CompletedAt)
		}
		if last == nil || date.After(*last) {
			last = &date
		}
	}
	return last, nil
}

func (r *memDonations) ScheduledDates(ctx context.Context, exec sqlx.ExtContext, donorID string) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dates []time.Time
	for _, d := range r.state.donations {
		if d.DonorID == donorID && d.Status == models.DonationStatusScheduled {
			dates = append(dates, d.DonationDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func (r *memDonations) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.DonationStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	donation, ok := r.state.donations[id]
	if !ok {
		return fmt.Errorf("update donation: %w", sql.ErrNoRows)
	}
	donation.Status = status
	if completedAt != nil {
		donation.CompletedAt = completedAt
	}
	r.state.donations[id] = donation
	return nil
}

func (r *memDonations) List(ctx context.Context, filter models.DonationFilter) ([]models.DonationDetail, int, error) {
	r.mu.Lock()
	var out []models.DonationDetail
	for _, d := range r.state.donations {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.DonorID != "" && d.DonorID != filter.DonorID {
			continue
		}
		if filter.CenterID != "" && d.CenterID != filter.CenterID {
			continue
		}
		out = append(out, models.DonationDetail{Donation: d, DonorName: r.state.donors[d.DonorID].FullName})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DonationDate.After(out[j].DonationDate) })
	return out, len(out), nil
}

func (r *memDonations) CountByCenter(ctx context.Context, exec sqlx.ExtContext, centerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, d := range r.state.donations {
		if d.CenterID == centerID {
			count++
		}
	}
	return count, nil
}

func (r *memDonations) CountScheduledOn(ctx context.Context, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, d := range r.state.donations {
		if d.Status == models.DonationStatusScheduled && dateOnly(d.DonationDate).Equal(dateOnly(day)) {
			count++
		}
	}
	return count, nil
}

func (r *memDonations) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.donations, id)
	return nil
}

type memUnits struct{ *memStore }

func (r *memUnits) Create(ctx context.Context, exec sqlx.ExtContext, unit *models.InventoryUnit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.state.units {
		if u.DonationID == unit.DonationID {
			return fmt.Errorf("insert inventory unit: duplicate donation %s", unit.DonationID)
		}
	}
	r.state.units[unit.ID] = *unit
	return nil
}

func (r *memUnits) LockByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) (*models.InventoryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.state.units {
		if u.DonationID == donationID {
			unit := u
			return &unit, nil
		}
	}
	return nil, fmt.Errorf("lock inventory unit: %w", sql.ErrNoRows)
}

func (r *memUnits) DeleteByDonation(ctx context.Context, exec sqlx.ExtContext, donationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, u := range r.state.units {
		if u.DonationID == donationID {
			delete(r.state.units, id)
		}
	}
	return nil
}

func (r *memUnits) FindDetailByID(ctx context.Context, id string) (*models.InventoryUnitDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	unit, ok := r.state.units[id]
	if !ok {
		return nil, fmt.Errorf("get inventory unit: %w", sql.ErrNoRows)
	}
	return &models.InventoryUnitDetail{InventoryUnit: unit, BloodGroup: r.bloodGroupOf(unit)}, nil
}

func (r *memUnits) issuable(group models.BloodGroup, component string, today time.Time) []models.InventoryUnitDetail {
	var out []models.InventoryUnitDetail
	for _, u := range r.state.units {
		if u.Status != models.UnitStatusAvailable || !u.ExpiryDate.After(today) {
			continue
		}
		bg := r.bloodGroupOf(u)
		if group != "" && bg != group {
			continue
		}
		if component != "" && u.ComponentType != component {
			continue
		}
		out = append(out, models.InventoryUnitDetail{InventoryUnit: u, BloodGroup: bg})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CollectionDate.Equal(out[j].CollectionDate) {
			return out[i].CollectionDate.Before(out[j].CollectionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memUnits) ListAvailable(ctx context.Context, filter models.InventoryFilter, today time.Time) ([]models.InventoryUnitDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issuable(filter.BloodGroup, filter.ComponentType, today), nil
}

func (r *memUnits) LockOldestAvailable(ctx context.Context, exec sqlx.ExtContext, bloodGroup models.BloodGroup, componentType string, today time.Time, limit int) ([]models.InventoryUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	details := r.issuable(bloodGroup, componentType, today)
	if len(details) > limit {
		details = details[:limit]
	}
	units := make([]models.InventoryUnit, 0, len(details))
	for _, d := range details {
		units = append(units, d.InventoryUnit)
	}
	return units, nil
}

func (r *memUnits) MarkIssued(ctx context.Context, exec sqlx.ExtContext, ids []string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected int64
	for _, id := range ids {
		u, ok := r.state.units[id]
		if !ok || u.Status != models.UnitStatusAvailable {
			continue
		}
		u.Status = models.UnitStatusIssued
		u.UpdatedAt = at
		r.state.units[id] = u
		affected++
	}
	return affected, nil
}

func (r *memUnits) ExpireDue(ctx context.Context, exec sqlx.ExtContext, today, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, u := range r.state.units {
		if u.Status == models.UnitStatusAvailable && !u.ExpiryDate.After(today) {
			u.Status = models.UnitStatusExpired
			u.UpdatedAt = at
			r.state.units[id] = u
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memUnits) StockSummary(ctx context.Context, today time.Time) ([]models.StockLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[[2]string]int{}
	for _, d := range r.issuable("", "", today) {
		counts[[2]string{string(d.BloodGroup), d.ComponentType}]++
	}
	levels := make([]models.StockLevel, 0, len(counts))
	for key, n := range counts {
		levels = append(levels, models.StockLevel{BloodGroup: models.BloodGroup(key[0]), ComponentType: key[1], Units: n})
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].BloodGroup != levels[j].BloodGroup {
			return levels[i].BloodGroup < levels[j].BloodGroup
		}
		return levels[i].ComponentType < levels[j].ComponentType
	})
	return levels, nil
}

func (r *memUnits) CountExpiringBefore(ctx context.Context, today, until time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, d := range r.issuable("", "", today) {
		if !d.ExpiryDate.After(until) {
			count++
		}
	}
	return count, nil
}

type memRequests struct{ *memStore }

func (r *memRequests) Create(ctx context.Context, exec sqlx.ExtContext, req *models.BloodRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.requests[req.ID] = *req
	return nil
}

func (r *memRequests) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.BloodRequest, error) {
	return r.FindByID(ctx, id)
}

func (r *memRequests) FindByID(ctx context.Context, id string) (*models.BloodRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.state.requests[id]
	if !ok {
		return nil, fmt.Errorf("get request: %w", sql.ErrNoRows)
	}
	return &req, nil
}

func (r *memRequests) List(ctx context.Context, filter models.RequestFilter) ([]models.BloodRequest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BloodRequest
	for _, req := range r.state.requests {
		if filter.Status == "" || req.Status == filter.Status {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, len(out), nil
}

func (r *memRequests) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.RequestStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.state.requests[id]
	if !ok {
		return fmt.Errorf("update request: %w", sql.ErrNoRows)
	}
	req.Status = status
	req.UpdatedAt = at
	r.state.requests[id] = req
	return nil
}

func (r *memRequests) CountByStatus(ctx context.Context, status models.RequestStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, req := range r.state.requests {
		if req.Status == status {
			count++
		}
	}
	return count, nil
}

type memIssues struct{ *memStore }

func (r *memIssues) Create(ctx context.Context, exec sqlx.ExtContext, issue *models.BloodIssue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.state.issues {
		if existing.InventoryUnitID == issue.InventoryUnitID {
			return fmt.Errorf("insert issue: unit %s already issued", issue.InventoryUnitID)
		}
	}
	r.state.issues = append(r.state.issues, *issue)
	return nil
}

func (r *memIssues) ListByRequest(ctx context.Context, requestID string) ([]models.BloodIssue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BloodIssue
	for _, issue := range r.state.issues {
		if issue.RequestID == requestID {
			out = append(out, issue)
		}
	}
	return out, nil
}

type memAudit struct{ *memStore }

func (r *memAudit) Record(ctx context.Context, exec sqlx.ExtContext, entry *models.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	r.state.audit = append(r.state.audit, *entry)
	return nil
}

func (r *memAudit) ListRecent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditLogEntry, 0, limit)
	for i := len(r.state.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.state.audit[i])
	}
	return out, nil
}

type memCenters struct{ *memStore }

func (r *memCenters) List(ctx context.Context, activeOnly bool) ([]models.Center, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Center
	for _, c := range r.state.centers {
		if !activeOnly || c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memCenters) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Center, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.state.centers[id]
	if !ok {
		return nil, fmt.Errorf("get center: %w", sql.ErrNoRows)
	}
	return &c, nil
}

func (r *memCenters) Create(ctx context.Context, center *models.Center) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	center.ID = uuid.NewString()
	center.Active = true
	center.CreatedAt = time.Now().UTC()
	r.state.centers[center.ID] = *center
	return nil
}

func (r *memCenters) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state.centers, id)
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingPublisher) Publish(ctx context.Context, evts ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range evts {
		p.seen = append(p.seen, e.Type)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.seen...)
}

// engine wires every inventory service against one memStore on a fixed clock.
type engine struct {
	store       *memStore
	publisher   *recordingPublisher
	donations   *DonationService
	allocations *AllocationService
	inventory   *InventoryService
	donors      *DonorService
	centers     *CenterService
	center      models.Center
	clock       time.Time
}

func newEngine(clock time.Time) *engine {
	store := newMemStore()
	pub := &recordingPublisher{}
	e := &engine{store: store, publisher: pub, clock: clock}
	now := func() time.Time { return e.clock }

	e.donations = NewDonationService(DonationServiceParams{
		Tx: store, Donors: store.donorRepo(), Donations: store.donationRepo(), Units: store.unitRepo(),
		Centers: store.centerRepo(), Audit: store.auditRepo(), Publisher: pub,
	})
	e.donations.now = now
	e.allocations = NewAllocationService(AllocationServiceParams{
		Tx: store, Requests: store.requestRepo(), Units: store.unitRepo(), Issues: store.issueRepo(),
		Audit: store.auditRepo(), Publisher: pub,
	})
	e.allocations.now = now
	e.inventory = NewInventoryService(InventoryServiceParams{Tx: store, Units: store.unitRepo(), Audit: store.auditRepo(), Publisher: pub})
	e.inventory.now = now
	e.donors = NewDonorService(store, store.donorRepo(), store.donationRepo(), store.auditRepo(), nil, nil, nil)
	e.donors.now = now
	e.centers = NewCenterService(store, store.centerRepo(), store.donationRepo(), store.auditRepo(), nil, nil)
	e.center = store.seedCenter("City Blood Center", true)
	return e
}

func (e *engine) advance(days int) {
	e.clock = e.clock.AddDate(0, 0, days)
}

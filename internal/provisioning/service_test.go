package provisioning

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/apperr"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/models/dto"
	"github.com/pedrohpossa/Centralized-Health-Information-Management-System-CHIMS/internal/storage"
)

// memState is the committed content of mockStore.
type memState struct {
	nextID     int64
	users      map[int64]models.User
	clinicians map[int64]models.ClinicianProfile
	patients   map[int64]models.PatientProfile
	// clinical rows keyed by the owning patient user id
	patientRecords map[int64]int
	// clinicians (by user id) referenced by clinical rows
	authored map[int64]bool
}

func (s memState) clone() memState {
	c := memState{
		nextID:         s.nextID,
		users:          map[int64]models.User{},
		clinicians:     map[int64]models.ClinicianProfile{},
		patients:       map[int64]models.PatientProfile{},
		patientRecords: map[int64]int{},
		authored:       map[int64]bool{},
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.clinicians {
		c.clinicians[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.patientRecords {
		c.patientRecords[k] = v
	}
	for k, v := range s.authored {
		c.authored[k] = v
	}
	return c
}

// mockStore is an in-memory storage.UserStore whose WithinTx commits a
// working copy only when fn succeeds.
type mockStore struct {
	mu    sync.Mutex
	state memState

	failPatientProfile bool
	failPatientUpdate  bool
	txCount            int
}

func newMockStore() *mockStore {
	return &mockStore{state: memState{}.clone()}
}

func (m *mockStore) WithinTx(ctx context.Context, fn func(tx storage.UserTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	work := &mockTx{store: m, state: m.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	m.state = work.state
	return nil
}

func (m *mockStore) FindIdentity(_ context.Context, id int64) (models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	switch u.Role {
	case models.RoleClinician:
		p, ok := m.state.clinicians[id]
		if !ok {
			return nil, storage.ErrProfileMissing
		}
		return models.ClinicianIdentity{User: u, Profile: p}, nil
	case models.RolePatient:
		p, ok := m.state.patients[id]
		if !ok {
			return nil, storage.ErrProfileMissing
		}
		return models.PatientIdentity{User: u, Profile: p}, nil
	}
	return models.AdminIdentity{User: u}, nil
}

func (m *mockStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.state.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *mockStore) ListUsers(_ context.Context, f models.UserFilter) ([]models.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserSummary{}
	for id := m.state.nextID; id > 0; id-- {
		u, ok := m.state.users[id]
		if !ok {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(u.FullName), strings.ToLower(f.Search)) && !strings.Contains(u.NationalID, f.Search) {
			continue
		}
		out = append(out, models.UserSummary{ID: u.ID, FullName: u.FullName, NationalID: u.NationalID, Email: u.Email, Role: u.Role, Status: models.StatusOf(u.Active)})
	}
	return out, nil
}

func (m *mockStore) ToggleActive(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[id]
	if !ok {
		return false, storage.ErrNotFound
	}
	u.Active = !u.Active
	m.state.users[id] = u
	return u.Active, nil
}

func (m *mockStore) DashboardStats(_ context.Context, since time.Time) (models.DashboardStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st models.DashboardStats
	for _, u := range m.state.users {
		switch u.Role {
		case models.RolePatient:
			st.TotalPatients++
		case models.RoleClinician:
			st.TotalClinicians++
		}
		if !u.CreatedAt.Before(since) {
			st.NewLastWeek++
		}
	}
	return st, nil
}

func (m *mockStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.users)
}

type mockTx struct {
	store *mockStore
	state memState
}

func (t *mockTx) InsertUser(_ context.Context, u models.User) (int64, error) {
	for _, existing := range t.state.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.NationalID == u.NationalID {
			return 0, storage.ErrAlreadyExists
		}
	}
	t.state.nextID++
	u.ID = t.state.nextID
	u.Active = true
	u.CreatedAt = time.Now()
	t.state.users[u.ID] = u
	return u.ID, nil
}

func (t *mockTx) InsertClinicianProfile(_ context.Context, p models.ClinicianProfile) error {
	p.ID = p.UserID + 1000
	t.state.clinicians[p.UserID] = p
	return nil
}

func (t *mockTx) InsertPatientProfile(_ context.Context, p models.PatientProfile) error {
	if t.store.failPatientProfile {
		return errors.New("disk full")
	}
	p.ID = p.UserID + 2000
	t.state.patients[p.UserID] = p
	return nil
}

func (t *mockTx) LockRole(_ context.Context, id int64) (models.Role, error) {
	u, ok := t.state.users[id]
	if !ok {
		return "", storage.ErrNotFound
	}
	return u.Role, nil
}

func (t *mockTx) UpdateUser(_ context.Context, u models.User) error {
	cur, ok := t.state.users[u.ID]
	if !ok {
		return storage.ErrNotFound
	}
	for id, existing := range t.state.users {
		if id != u.ID && (strings.EqualFold(existing.Email, u.Email) || existing.NationalID == u.NationalID) {
			return storage.ErrAlreadyExists
		}
	}
	cur.FullName, cur.NationalID, cur.Email, cur.BirthDate, cur.Phone = u.FullName, u.NationalID, u.Email, u.BirthDate, u.Phone
	t.state.users[u.ID] = cur
	return nil
}

func (t *mockTx) UpdatePassword(_ context.Context, id int64, hash string) error {
	u := t.state.users[id]
	u.PasswordHash = hash
	t.state.users[id] = u
	return nil
}

func (t *mockTx) UpdateClinicianProfile(_ context.Context, p models.ClinicianProfile) error {
	cur, ok := t.state.clinicians[p.UserID]
	if !ok {
		return storage.ErrProfileMissing
	}
	cur.LicenseNumber, cur.Specialty = p.LicenseNumber, p.Specialty
	t.state.clinicians[p.UserID] = cur
	return nil
}

func (t *mockTx) UpdatePatientProfile(_ context.Context, p models.PatientProfile) error {
	if t.store.failPatientUpdate {
		return errors.New("connection reset by peer")
	}
	cur, ok := t.state.patients[p.UserID]
	if !ok {
		return storage.ErrProfileMissing
	}
	cur.Address, cur.BloodType = p.Address, p.BloodType
	t.state.patients[p.UserID] = cur
	return nil
}

func (t *mockTx) DeleteUser(_ context.Context, id int64) error {
	if _, ok := t.state.users[id]; !ok {
		return storage.ErrNotFound
	}
	if t.state.authored[id] {
		return storage.ErrHasDependents
	}
	delete(t.state.users, id)
	delete(t.state.clinicians, id)
	delete(t.state.patients, id)
	delete(t.state.patientRecords, id)
	return nil
}

type mockRevoker struct {
	revoked []int64
}

func (m *mockRevoker) RevokeUser(_ context.Context, id int64) error {
	m.revoked = append(m.revoked, id)
	return nil
}

func newTestService() (*Service, *mockStore, *mockRevoker) {
	store := newMockStore()
	rev := &mockRevoker{}
	svc := NewService(store, rev, zerolog.Nop())
	svc.hash = func(p string) (string, error) { return "hashed:" + p, nil }
	return svc, store, rev
}

func strPtr(s string) *string { return &s }

func patientRequest(email, nationalID string) dto.CreateUserRequest {
	return dto.CreateUserRequest{
		FullName:   "Maria Souza",
		NationalID: nationalID,
		Email:      email,
		BirthDate:  "1990-04-12",
		Password:   "password123",
		Role:       "patient",
		Address:    strPtr("Rua A, 10"),
		BloodType:  strPtr("O+"),
	}
}

func TestCreateUser_RoundTrip(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []dto.CreateUserRequest{
		patientRequest("maria@clinic.test", "111"),
		{FullName: "Dr. João Lima", NationalID: "222", Email: "joao@clinic.test", BirthDate: "1980-01-02",
			Password: "password123", Role: "clinician", LicenseNumber: "CRM-1234", Specialty: "Cardiology"},
		{FullName: "Admin", NationalID: "333", Email: "admin@clinic.test", BirthDate: "1975-06-30",
			Password: "password123", Role: "admin"},
	}
	for _, req := range cases {
		id, err := svc.CreateUser(ctx, req)
		if err != nil {
			t.Fatalf("%s: create: %v", req.Role, err)
		}
		detail, err := svc.GetUserDetails(ctx, id)
		if err != nil {
			t.Fatalf("%s: details: %v", req.Role, err)
		}
		if detail.FullName != req.FullName || detail.Email != req.Email || string(detail.Role) != req.Role {
			t.Fatalf("%s: base fields mismatch: %+v", req.Role, detail)
		}
		if detail.Status != models.StatusActive {
			t.Fatalf("%s: new users must be active", req.Role)
		}
		if detail.BirthDate.Format(time.DateOnly) != req.BirthDate {
			t.Fatalf("%s: birth date %s", req.Role, detail.BirthDate)
		}
		switch req.Role {
		case "clinician":
			if detail.LicenseNumber != req.LicenseNumber || detail.Specialty != req.Specialty {
				t.Fatalf("clinician subtype mismatch: %+v", detail)
			}
		case "patient":
			if detail.Address == nil || *detail.Address != *req.Address || *detail.BloodType != *req.BloodType {
				t.Fatalf("patient subtype mismatch: %+v", detail)
			}
		}
		if detail.PasswordHash == req.Password {
			t.Fatal("password stored in plain text")
		}
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	bad := []func(r *dto.CreateUserRequest){
		func(r *dto.CreateUserRequest) { r.FullName = "  " },
		func(r *dto.CreateUserRequest) { r.Email = "not-an-email" },
		func(r *dto.CreateUserRequest) { r.BirthDate = "12/04/1990" },
		func(r *dto.CreateUserRequest) { r.Password = "" },
		func(r *dto.CreateUserRequest) { r.Password = "short" },
		func(r *dto.CreateUserRequest) { r.Role = "nurse" },
		func(r *dto.CreateUserRequest) { r.Role = "clinician" },
	}
	for i, mutate := range bad {
		req := patientRequest("v@clinic.test", "999")
		mutate(&req)
		_, err := svc.CreateUser(ctx, req)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if store.userCount() != 0 || store.txCount != 0 {
		t.Fatalf("validation failures must not reach storage: users=%d tx=%d", store.userCount(), store.txCount)
	}
}

func TestCreateUser_DuplicateLeavesNoRow(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := store.userCount()

	_, err := svc.CreateUser(ctx, patientRequest("MARIA@clinic.test", "444"))
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error for duplicate email, got %v", err)
	}
	_, err = svc.CreateUser(ctx, patientRequest("other@clinic.test", "111"))
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error for duplicate national id, got %v", err)
	}
	if store.userCount() != before {
		t.Fatalf("user count changed: %d -> %d", before, store.userCount())
	}
}

func TestCreateUser_SubtypeFailureRollsBack(t *testing.T) {
	svc, store, _ := newTestService()
	store.failPatientProfile = true

	_, err := svc.CreateUser(context.Background(), patientRequest("maria@clinic.test", "111"))
	if !errors.Is(err, apperr.ErrProvisioning) {
		t.Fatalf("expected provisioning error, got %v", err)
	}
	if apperr.PublicMessage(err) == "disk full" {
		t.Fatal("cause leaked into public message")
	}
	if store.userCount() != 0 {
		t.Fatal("base row must not survive a failed subtype insert")
	}
}

func TestUpdateUser(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	id, err := svc.CreateUser(ctx, dto.CreateUserRequest{FullName: "Dr. Ana", NationalID: "555", Email: "ana@clinic.test",
		BirthDate: "1985-03-03", Password: "password123", Role: "clinician", LicenseNumber: "CRM-1", Specialty: "GP"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.UpdateUser(ctx, dto.UpdateUserRequest{ID: id, FullName: "Dr. Ana Paula", NationalID: "555", Email: "ana@clinic.test",
		BirthDate: "1985-03-03", LicenseNumber: "CRM-2", Specialty: "Pediatrics"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	detail, _ := svc.GetUserDetails(ctx, id)
	if detail.FullName != "Dr. Ana Paula" || detail.LicenseNumber != "CRM-2" || detail.Specialty != "Pediatrics" {
		t.Fatalf("update not applied: %+v", detail)
	}
	if detail.PasswordHash != "hashed:password123" {
		t.Fatalf("empty password must keep the stored hash, got %q", detail.PasswordHash)
	}

	err = svc.UpdateUser(ctx, dto.UpdateUserRequest{ID: id, FullName: "Dr. Ana Paula", NationalID: "555", Email: "ana@clinic.test",
		BirthDate: "1985-03-03", Password: "newpassword1", LicenseNumber: "CRM-2", Specialty: "Pediatrics"})
	if err != nil {
		t.Fatalf("update password: %v", err)
	}
	detail, _ = svc.GetUserDetails(ctx, id)
	if detail.PasswordHash != "hashed:newpassword1" {
		t.Fatalf("password not replaced: %q", detail.PasswordHash)
	}
}

func TestUpdateUser_RoleChangeRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111"))

	err := svc.UpdateUser(ctx, dto.UpdateUserRequest{ID: id, FullName: "Maria", NationalID: "111", Email: "maria@clinic.test",
		BirthDate: "1990-04-12", Role: "admin"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	detail, _ := svc.GetUserDetails(ctx, id)
	if detail.Role != models.RolePatient || detail.FullName != "Maria Souza" {
		t.Fatalf("rejected update must not apply: %+v", detail)
	}
}

func TestUpdateUser_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	first, _ := svc.CreateUser(ctx, patientRequest("a@clinic.test", "1"))
	_, _ = svc.CreateUser(ctx, patientRequest("b@clinic.test", "2"))

	err := svc.UpdateUser(ctx, dto.UpdateUserRequest{ID: 404, FullName: "X", NationalID: "9", Email: "x@clinic.test", BirthDate: "2000-01-01"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	err = svc.UpdateUser(ctx, dto.UpdateUserRequest{ID: first, FullName: "A", NationalID: "1", Email: "b@clinic.test", BirthDate: "2000-01-01"})
	if !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestUpdateUser_FailureInsideTxIsProvisioning(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111"))
	update := dto.UpdateUserRequest{ID: id, FullName: "Maria Lima", NationalID: "111", Email: "maria@clinic.test",
		BirthDate: "1990-04-12", BloodType: strPtr("A-")}

	store.failPatientUpdate = true
	err := svc.UpdateUser(ctx, update)
	if !errors.Is(err, apperr.ErrProvisioning) || strings.Contains(apperr.PublicMessage(err), "connection") {
		t.Fatalf("expected opaque provisioning error, got %v", err)
	}
	detail, _ := svc.GetUserDetails(ctx, id)
	if detail.FullName != "Maria Souza" {
		t.Fatalf("failed update must roll back the base row: %+v", detail)
	}

	store.failPatientUpdate = false
	svc.hash = func(string) (string, error) { return "", errors.New("bcrypt: cost out of range") }
	update.Password = "newpassword1"
	if err := svc.UpdateUser(ctx, update); !errors.Is(err, apperr.ErrProvisioning) {
		t.Fatalf("expected provisioning error for hash failure, got %v", err)
	}
}

func TestToggleActive_IsItsOwnInverse(t *testing.T) {
	svc, _, rev := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111"))

	status, err := svc.ToggleActive(ctx, id)
	if err != nil || status != models.StatusInactive {
		t.Fatalf("first toggle: %s %v", status, err)
	}
	if len(rev.revoked) != 1 || rev.revoked[0] != id {
		t.Fatalf("deactivation must revoke sessions, got %v", rev.revoked)
	}
	status, err = svc.ToggleActive(ctx, id)
	if err != nil || status != models.StatusActive {
		t.Fatalf("second toggle: %s %v", status, err)
	}
	detail, _ := svc.GetUserDetails(ctx, id)
	if !detail.Active {
		t.Fatal("two toggles must restore the original state")
	}

	if _, err := svc.ToggleActive(ctx, 404); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteUser_PatientCascades(t *testing.T) {
	svc, store, rev := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111"))
	store.state.patientRecords[id] = 5

	if err := svc.DeleteUser(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetUserDetails(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected deleted user to be gone, got %v", err)
	}
	if _, ok := store.state.patients[id]; ok {
		t.Fatal("patient profile must cascade")
	}
	if store.state.patientRecords[id] != 0 {
		t.Fatal("clinical rows must cascade")
	}
	if len(rev.revoked) != 1 {
		t.Fatal("deleted user sessions must be revoked")
	}
	if err := svc.DeleteUser(ctx, id); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteUser_ClinicianWithRecordsIsAtomic(t *testing.T) {
	svc, store, rev := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, dto.CreateUserRequest{FullName: "Dr. Ana", NationalID: "555", Email: "ana@clinic.test",
		BirthDate: "1985-03-03", Password: "password123", Role: "clinician", LicenseNumber: "CRM-1", Specialty: "GP"})
	store.state.authored[id] = true

	err := svc.DeleteUser(ctx, id)
	if !errors.Is(err, apperr.ErrDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if apperr.Status(err) != 409 {
		t.Fatalf("expected 409, got %d", apperr.Status(err))
	}
	detail, err := svc.GetUserDetails(ctx, id)
	if err != nil || detail.LicenseNumber != "CRM-1" {
		t.Fatalf("user and profile must be untouched: %+v %v", detail, err)
	}
	if len(rev.revoked) != 0 {
		t.Fatal("failed delete must not revoke sessions")
	}
}

func TestGetUserDetails_MissingProfile(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	id, _ := svc.CreateUser(ctx, patientRequest("maria@clinic.test", "111"))
	delete(store.state.patients, id)

	if _, err := svc.GetUserDetails(ctx, id); !errors.Is(err, apperr.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
}

func TestListUsersAndStats(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	_, _ = svc.CreateUser(ctx, patientRequest("a@clinic.test", "1"))
	_, _ = svc.CreateUser(ctx, dto.CreateUserRequest{FullName: "Dr. Ana", NationalID: "2", Email: "ana@clinic.test",
		BirthDate: "1985-03-03", Password: "password123", Role: "clinician", LicenseNumber: "CRM-1", Specialty: "GP"})

	all, err := svc.ListUsers(ctx, "", "")
	if err != nil || len(all) != 2 {
		t.Fatalf("list all: %d %v", len(all), err)
	}
	if all[0].FullName != "Dr. Ana" {
		t.Fatalf("expected newest first, got %s", all[0].FullName)
	}
	clinicians, _ := svc.ListUsers(ctx, "", "clinician")
	if len(clinicians) != 1 {
		t.Fatalf("expected one clinician, got %d", len(clinicians))
	}
	if _, err := svc.ListUsers(ctx, "", "nurse"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}

	stats, err := svc.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPatients != 1 || stats.TotalClinicians != 1 || stats.NewLastWeek != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

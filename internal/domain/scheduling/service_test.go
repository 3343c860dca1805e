package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healup/healup/internal/platform/auth"
	"github.com/healup/healup/internal/platform/db"
	"github.com/healup/healup/pkg/apperr"
)

// -- Mock Repositories --

type mockAppointmentRepo struct {
	appts map[string]*Appointment
	// skipActiveCheck makes FindActive miss, simulating the window between
	// a concurrent booking's check and its insert.
	skipActiveCheck bool
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[string]*Appointment)}
}

func (m *mockAppointmentRepo) holder(doctorID, date, tm, except string) *Appointment {
	for _, a := range m.appts {
		if a.ID != except && a.DoctorID == doctorID && a.Date == date && a.Time == tm && a.Status.Active() {
			return a
		}
	}
	return nil
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	if m.holder(a.DoctorID, a.Date, a.Time, "") != nil {
		return ErrSlotTaken
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) List(_ context.Context, f AppointmentFilter) ([]*Appointment, error) {
	out := []*Appointment{}
	for _, a := range m.appts {
		if f.PatientID != "" && a.PatientID != f.PatientID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *mockAppointmentRepo) FindActive(_ context.Context, doctorID, date, tm string) (*Appointment, error) {
	if m.skipActiveCheck {
		return nil, db.ErrNotFound
	}
	if a := m.holder(doctorID, date, tm, ""); a != nil {
		return a, nil
	}
	return nil, db.ErrNotFound
}

func (m *mockAppointmentRepo) SetStatus(_ context.Context, id string, st Status) error {
	a, ok := m.appts[id]
	if !ok {
		return db.ErrNotFound
	}
	if st.Active() && !a.Status.Active() && m.holder(a.DoctorID, a.Date, a.Time, id) != nil {
		return ErrSlotTaken
	}
	a.Status = st
	return nil
}

func (m *mockAppointmentRepo) Confirm(_ context.Context, id, paymentID string) error {
	a, ok := m.appts[id]
	if !ok {
		return db.ErrNotFound
	}
	if !a.Status.Active() && m.holder(a.DoctorID, a.Date, a.Time, id) != nil {
		return ErrSlotTaken
	}
	a.Status = StatusConfirmed
	a.PaymentID = &paymentID
	return nil
}

type mockAvailabilityRepo struct {
	records map[string]*Availability
}

func newMockAvailabilityRepo() *mockAvailabilityRepo {
	return &mockAvailabilityRepo{records: make(map[string]*Availability)}
}

func (m *mockAvailabilityRepo) ListByDoctor(_ context.Context, doctorID string) ([]*Availability, error) {
	out := []*Availability{}
	for _, a := range m.records {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *mockAvailabilityRepo) Get(_ context.Context, doctorID, date string) (*Availability, error) {
	a, ok := m.records[doctorID+"|"+date]
	if !ok {
		return nil, db.ErrNotFound
	}
	return a, nil
}

func (m *mockAvailabilityRepo) Upsert(_ context.Context, a *Availability) error {
	key := a.DoctorID + "|" + a.Date
	if existing, ok := m.records[key]; ok {
		a.ID = existing.ID
	} else {
		a.ID = uuid.New().String()
	}
	cp := *a
	m.records[key] = &cp
	return nil
}

type mockDirectory struct {
	doctors  map[string]*DoctorCard
	patients map[string]string
}

func (m *mockDirectory) Doctor(_ context.Context, id string) (*DoctorCard, error) {
	return m.doctors[id], nil
}

func (m *mockDirectory) DoctorForUser(_ context.Context, userID string) (*DoctorCard, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, nil
}

func (m *mockDirectory) PatientName(_ context.Context, id string) (string, error) {
	return m.patients[id], nil
}

type mapCache struct {
	entries map[string][]string
	sets    int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string][]string)} }

func (m *mapCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	v, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	*(dst.(*[]string)) = v
	return true, nil
}

func (m *mapCache) Set(_ context.Context, key string, v interface{}) error {
	m.sets++
	m.entries[key] = v.([]string)
	return nil
}

func (m *mapCache) DeletePattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	return nil
}

// -- Fixtures --

var (
	patientA = &auth.Principal{UserID: "user-a", ProfileID: "pat-a", Role: auth.RolePatient}
	patientB = &auth.Principal{UserID: "user-b", ProfileID: "pat-b", Role: auth.RolePatient}
	doctorD  = &auth.Principal{UserID: "user-d", ProfileID: "doc-d", Role: auth.RoleDoctor}
	doctorE  = &auth.Principal{UserID: "user-e", ProfileID: "doc-e", Role: auth.RoleDoctor}
	admin    = &auth.Principal{UserID: "root", Role: auth.RoleAdmin}
)

type testEnv struct {
	svc   *Service
	appts *mockAppointmentRepo
	avail *mockAvailabilityRepo
	cache *mapCache
}

func newTestEnv() *testEnv {
	env := &testEnv{
		appts: newMockAppointmentRepo(),
		avail: newMockAvailabilityRepo(),
		cache: newMapCache(),
	}
	dir := &mockDirectory{
		doctors: map[string]*DoctorCard{
			"doc-d": {ID: "doc-d", UserID: "user-d", Name: "Dr. Desai", Specialty: "Cardiology", AvailableSlots: []string{"09:00", "10:00"}},
			"doc-e": {ID: "doc-e", UserID: "user-e", Name: "Dr. Edwards", Specialty: "Dermatology"},
		},
		patients: map[string]string{"user-a": "Anita", "user-b": "Bilal"},
	}
	env.svc = NewService(env.appts, env.avail, dir, env.cache, zerolog.Nop())
	return env
}

func (env *testEnv) book(t *testing.T, p *auth.Principal, patientID, doctorID, tm string) *Appointment {
	t.Helper()
	a, err := env.svc.Book(context.Background(), p, BookInput{
		PatientID: patientID, DoctorID: doctorID, Date: "2026-03-10", Time: tm, Type: "consultation",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	return a
}

// -- Booking --

func TestBook_CreatesPendingWithSnapshots(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")

	if a.Status != StatusPending {
		t.Errorf("expected pending, got %s", a.Status)
	}
	if a.PatientName != "Anita" || a.DoctorName != "Dr. Desai" || a.Specialty != "Cardiology" {
		t.Errorf("unexpected snapshots %+v", a)
	}

	got, err := env.svc.Get(context.Background(), patientA, a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != a.ID || got.Date != a.Date || got.Time != a.Time || got.Type != a.Type ||
		got.PatientID != a.PatientID || got.DoctorID != a.DoctorID || got.Status != a.Status {
		t.Errorf("read-after-write mismatch: %+v vs %+v", got, a)
	}
	if !a.CreatedAt.Equal(a.CreatedAt.Truncate(time.Microsecond)) {
		t.Errorf("created_at finer than the store keeps: %s", a.CreatedAt.Format(time.RFC3339Nano))
	}
}

func TestBook_PlaceholdersForUnknownProfiles(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, admin, "ghost", "doc-missing", "09:00")
	if a.DoctorName != UnknownDoctor || a.Specialty != "" || a.PatientName != UnknownPatient {
		t.Errorf("expected placeholders, got %+v", a)
	}
}

func TestBook_CollisionLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	first := env.book(t, patientA, "user-a", "doc-d", "10:00")

	_, err := env.svc.Book(ctx, patientB, BookInput{PatientID: "user-b", DoctorID: "doc-d", Date: "2026-03-10", Time: "10:00", Type: "x"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict while pending, got %v", err)
	}

	if err := env.svc.Confirm(ctx, first.ID, "pay-1"); err != nil {
		t.Fatal(err)
	}
	_, err = env.svc.Book(ctx, patientB, BookInput{PatientID: "user-b", DoctorID: "doc-d", Date: "2026-03-10", Time: "10:00", Type: "x"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict while confirmed, got %v", err)
	}

	if err := env.svc.Cancel(ctx, patientA, first.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.svc.Book(ctx, patientB, BookInput{PatientID: "user-b", DoctorID: "doc-d", Date: "2026-03-10", Time: "10:00", Type: "x"}); err != nil {
		t.Fatalf("expected rebooking after cancel to succeed, got %v", err)
	}
}

func TestBook_RaceCaughtByStore(t *testing.T) {
	env := newTestEnv()
	env.book(t, patientA, "user-a", "doc-d", "11:00")
	env.appts.skipActiveCheck = true

	_, err := env.svc.Book(context.Background(), patientB, BookInput{PatientID: "user-b", DoctorID: "doc-d", Date: "2026-03-10", Time: "11:00", Type: "x"})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindConflict || ae.Message != "Slot already booked" {
		t.Errorf("expected 409 Slot already booked, got %v", err)
	}
}

func TestBook_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	full := BookInput{PatientID: "user-a", DoctorID: "doc-d", Date: "2026-03-10", Time: "09:00", Type: "x"}

	missing := []func(*BookInput){
		func(in *BookInput) { in.PatientID = "" },
		func(in *BookInput) { in.DoctorID = "" },
		func(in *BookInput) { in.Date = "" },
		func(in *BookInput) { in.Time = " " },
		func(in *BookInput) { in.Type = "" },
	}
	for i, mut := range missing {
		in := full
		mut(&in)
		if _, err := env.svc.Book(ctx, patientA, in); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}

	if _, err := env.svc.Book(ctx, nil, full); !errors.Is(err, apperr.ErrAuthentication) {
		t.Errorf("expected 401 for anonymous, got %v", err)
	}

	in := full
	in.PatientID = "user-b"
	_, err := env.svc.Book(ctx, patientA, in)
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindAuthorization || ae.Message != "Cannot book for another patient" {
		t.Errorf("expected 403 Cannot book for another patient, got %v", err)
	}

	// The profile id is not accepted in place of the account id.
	in.PatientID = "pat-a"
	if _, err := env.svc.Book(ctx, patientA, in); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("expected 403 booking by profile id, got %v", err)
	}
	in.PatientID = "user-b"

	// Doctors and admins may book on a patient's behalf.
	in.Time = "15:00"
	if _, err := env.svc.Book(ctx, doctorE, in); err != nil {
		t.Errorf("doctor booking on behalf: %v", err)
	}
}

// -- Status transitions --

func TestCancel_AnyPriorStatus(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	for i, prior := range []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
		t.Run(string(prior), func(t *testing.T) {
			a := env.book(t, patientA, "user-a", "doc-d", fmt.Sprintf("13:%02d", i))
			env.appts.appts[a.ID].Status = prior
			if err := env.svc.Cancel(ctx, patientA, a.ID); err != nil {
				t.Fatalf("cancel from %s: %v", prior, err)
			}
			if got := env.appts.appts[a.ID].Status; got != StatusCancelled {
				t.Errorf("expected cancelled, got %s", got)
			}
		})
	}
}

func TestCancel_Permissions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")

	if err := env.svc.Cancel(ctx, patientB, a.ID); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("other patient must be forbidden, got %v", err)
	}
	if err := env.svc.Cancel(ctx, doctorE, a.ID); err != nil {
		t.Errorf("any doctor may cancel, got %v", err)
	}
	if err := env.svc.Cancel(ctx, nil, a.ID); !errors.Is(err, apperr.ErrAuthentication) {
		t.Errorf("anonymous must be 401, got %v", err)
	}
	if err := env.svc.Cancel(ctx, admin, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestComplete_Roles(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")

	if err := env.svc.Complete(ctx, patientA, a.ID); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("patient must be forbidden, got %v", err)
	}
	// Not this appointment's doctor, still allowed.
	if err := env.svc.Complete(ctx, doctorE, a.ID); err != nil {
		t.Fatalf("any doctor may complete, got %v", err)
	}
	if got := env.appts.appts[a.ID].Status; got != StatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}

	b := env.book(t, patientA, "user-a", "doc-d", "10:00")
	if err := env.svc.Complete(ctx, admin, b.ID); err != nil {
		t.Errorf("admin may complete, got %v", err)
	}
	if err := env.svc.Complete(ctx, admin, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestComplete_CancelledSlotRebooked(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")
	env.svc.Cancel(ctx, patientA, a.ID)
	env.book(t, patientB, "user-b", "doc-d", "09:00")

	if err := env.svc.Complete(ctx, doctorD, a.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("reviving a cancelled booking onto a taken slot must conflict, got %v", err)
	}
}

func TestConfirm_SetsPayment(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")

	if err := env.svc.Confirm(context.Background(), a.ID, "pay-9"); err != nil {
		t.Fatal(err)
	}
	got := env.appts.appts[a.ID]
	if got.Status != StatusConfirmed || got.PaymentID == nil || *got.PaymentID != "pay-9" {
		t.Errorf("unexpected appointment %+v", got)
	}
	if err := env.svc.Confirm(context.Background(), "missing", "pay-9"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

// -- Access --

func TestGet_Access(t *testing.T) {
	env := newTestEnv()
	a := env.book(t, patientA, "user-a", "doc-d", "09:00")

	tests := []struct {
		name string
		p    *auth.Principal
		kind apperr.Kind
		ok   bool
	}{
		{"owner patient", patientA, 0, true},
		{"other patient", patientB, apperr.KindAuthorization, false},
		{"own doctor", doctorD, 0, true},
		{"other doctor", doctorE, apperr.KindAuthorization, false},
		{"doctor without profile", &auth.Principal{UserID: "user-x", Role: auth.RoleDoctor}, apperr.KindAuthorization, false},
		{"admin", admin, 0, true},
		{"anonymous", nil, apperr.KindAuthentication, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Get(context.Background(), tt.p, a.ID)
			if tt.ok && err != nil {
				t.Fatalf("expected access, got %v", err)
			}
			if !tt.ok && apperr.KindOf(err) != tt.kind {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}

	if _, err := env.svc.Get(context.Background(), admin, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestListings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.book(t, patientA, "user-a", "doc-d", "09:00")
	env.book(t, patientA, "user-a", "doc-e", "10:00")
	env.book(t, patientB, "user-b", "doc-d", "11:00")

	count := func(items []*Appointment, err error) int {
		t.Helper()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return len(items)
	}

	if n := count(env.svc.ListMine(ctx, patientA)); n != 2 {
		t.Errorf("patient mine: expected 2, got %d", n)
	}
	if n := count(env.svc.ListMine(ctx, doctorD)); n != 2 {
		t.Errorf("doctor mine: expected 2, got %d", n)
	}
	if n := count(env.svc.ListMine(ctx, &auth.Principal{UserID: "u", Role: auth.RoleDoctor})); n != 0 {
		t.Errorf("doctor without profile: expected 0, got %d", n)
	}
	if n := count(env.svc.ListMine(ctx, admin)); n != 3 {
		t.Errorf("admin mine: expected 3, got %d", n)
	}
	if n := count(env.svc.ListAll(ctx, admin)); n != 3 {
		t.Errorf("admin all: expected 3, got %d", n)
	}
	if _, err := env.svc.ListAll(ctx, doctorD); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("list all must be admin only, got %v", err)
	}

	if n := count(env.svc.ListByPatient(ctx, doctorE, "user-a")); n != 2 {
		t.Errorf("doctor by patient: expected 2, got %d", n)
	}
	if _, err := env.svc.ListByPatient(ctx, patientB, "user-a"); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("other patient listing must be forbidden, got %v", err)
	}
	if n := count(env.svc.ListByDoctor(ctx, doctorD, "doc-d")); n != 2 {
		t.Errorf("own doctor listing: expected 2, got %d", n)
	}
	if _, err := env.svc.ListByDoctor(ctx, doctorE, "doc-d"); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("other doctor listing must be forbidden, got %v", err)
	}
	if n := count(env.svc.ListByDoctor(ctx, patientA, "doc-d")); n != 2 {
		t.Errorf("patient by doctor: expected 2, got %d", n)
	}
}

// -- Availability --

func TestSetAvailability(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.svc.SetAvailability(ctx, doctorE, "doc-d", "2026-03-10", []string{"08:00"}); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("another doctor must be forbidden, got %v", err)
	}
	if _, err := env.svc.SetAvailability(ctx, doctorD, "doc-unknown", "2026-03-10", nil); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("unknown doctor must be forbidden, got %v", err)
	}
	if _, err := env.svc.SetAvailability(ctx, patientA, "doc-d", "2026-03-10", nil); !errors.Is(err, apperr.ErrAuthorization) {
		t.Errorf("patient must be forbidden, got %v", err)
	}
	if _, err := env.svc.SetAvailability(ctx, doctorD, "doc-d", "", nil); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected Missing date, got %v", err)
	}

	first, err := env.svc.SetAvailability(ctx, doctorD, "doc-d", "2026-03-10", []string{"08:00"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := env.svc.SetAvailability(ctx, doctorD, "doc-d", "2026-03-10", []string{"12:00", "13:00"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Error("upsert must keep one record per (doctor, date)")
	}
	items, _ := env.svc.GetAvailability(ctx, "doc-d")
	if len(items) != 1 || len(items[0].Slots) != 2 {
		t.Errorf("unexpected availability %+v", items)
	}
}

func TestSlots_Fallbacks(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.SetAvailability(ctx, doctorD, "doc-d", "2026-03-10", []string{"16:00"})

	tests := []struct {
		name, doctor, date string
		want               []string
	}{
		{"date record", "doc-d", "2026-03-10", []string{"16:00"}},
		{"profile default", "doc-d", "2026-03-11", []string{"09:00", "10:00"}},
		{"no date", "doc-d", "", []string{"09:00", "10:00"}},
		{"profile without slots", "doc-e", "2026-03-10", []string{}},
		{"unknown doctor", "nobody", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.svc.Slots(ctx, tt.doctor, tt.date)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") || got == nil {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSlots_CacheInvalidatedOnSet(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.svc.Slots(ctx, "doc-d", "2026-04-01")
	env.svc.Slots(ctx, "doc-d", "2026-04-01")
	if env.cache.sets != 1 {
		t.Errorf("expected second lookup served from cache, got %d sets", env.cache.sets)
	}

	env.svc.SetAvailability(ctx, doctorD, "doc-d", "2026-04-01", []string{"07:00"})
	got, _ := env.svc.Slots(ctx, "doc-d", "2026-04-01")
	if len(got) != 1 || got[0] != "07:00" {
		t.Errorf("expected fresh slots after set, got %v", got)
	}
}

package issue_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/core/events"
	"github.com/frahmantamala/civic-report/internal/core/user"
	"github.com/frahmantamala/civic-report/internal/geo"
	"github.com/frahmantamala/civic-report/internal/issue"
	"github.com/frahmantamala/civic-report/internal/media"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockRepository is an in-memory issue store.
type mockRepository struct {
	mu         sync.Mutex
	issues     map[int64]*issue.Issue
	votes      map[int64]map[int64]bool
	points     map[int64]int64
	nextID     int64
	clock      time.Time
	shouldFail bool
	failError  error
	// raced simulates a concurrent writer changing the status first
	raced      bool
	applyError error
	reads      int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		issues: map[int64]*issue.Issue{},
		votes:  map[int64]map[int64]bool{},
		points: map[int64]int64{},
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockRepository) copyOf(i *issue.Issue) *issue.Issue {
	c := *i
	c.Images = append([]string{}, i.Images...)
	return &c
}

func (m *mockRepository) Create(_ context.Context, i *issue.Issue, reporterPoints int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return m.failError
	}
	m.clock = m.clock.Add(time.Minute)
	i.ID = m.nextID
	i.CreatedAt = m.clock
	i.UpdatedAt = m.clock
	m.nextID++
	m.issues[i.ID] = m.copyOf(i)
	m.points[i.ReportedBy] += reporterPoints
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id int64) (*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.shouldFail {
		return nil, m.failError
	}
	i, ok := m.issues[id]
	if !ok {
		return nil, internal.ErrIssueNotFound
	}
	return m.copyOf(i), nil
}

func (m *mockRepository) sorted(keep func(*issue.Issue) bool) []*issue.Issue {
	var out []*issue.Issue
	for _, i := range m.issues {
		if keep(i) {
			out = append(out, m.copyOf(i))
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

func (m *mockRepository) List(_ context.Context, f issue.ListFilter) ([]*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return nil, m.failError
	}
	return m.sorted(func(i *issue.Issue) bool {
		return (f.Category == "" || i.Category == f.Category) &&
			(f.Status == "" || string(i.Status) == f.Status) &&
			(f.Priority == "" || string(i.Priority) == f.Priority)
	}), nil
}

func (m *mockRepository) ListByReporter(_ context.Context, userID int64) ([]*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(i *issue.Issue) bool { return i.ReportedBy == userID }), nil
}

func (m *mockRepository) ListVisibleTo(_ context.Context, adminID int64, categories []string) ([]*issue.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(i *issue.Issue) bool {
		if i.AssignedAdmin != nil {
			return *i.AssignedAdmin == adminID
		}
		for _, c := range categories {
			if c == i.Category {
				return true
			}
		}
		return false
	}), nil
}

func (m *mockRepository) Apply(_ context.Context, id int64, change issue.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyError != nil {
		return m.applyError
	}
	i, ok := m.issues[id]
	if !ok {
		return internal.ErrIssueNotFound
	}
	if m.raced || i.Status != change.From {
		return internal.ErrConcurrentUpdate
	}
	if change.To != nil {
		i.Status = *change.To
	}
	if change.Officer != nil {
		i.AssignedOfficer = *change.Officer
	}
	if change.AssignedAdmin != nil {
		admin := *change.AssignedAdmin
		i.AssignedAdmin = &admin
	}
	return nil
}

func (m *mockRepository) Assign(_ context.Context, id int64, adminID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[id]
	if !ok {
		return internal.ErrIssueNotFound
	}
	i.AssignedAdmin = &adminID
	return nil
}

func (m *mockRepository) Upvote(_ context.Context, issueID, userID int64, voterPoints int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[issueID]
	if !ok {
		return 0, internal.ErrIssueNotFound
	}
	if m.votes[issueID] == nil {
		m.votes[issueID] = map[int64]bool{}
	}
	if m.votes[issueID][userID] {
		return 0, internal.ErrAlreadyVoted
	}
	m.votes[issueID][userID] = true
	i.Upvotes++
	m.points[userID] += voterPoints
	return i.Upvotes, nil
}

func (m *mockRepository) VotedIssueIDs(_ context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for issueID, voters := range m.votes {
		if voters[userID] {
			ids = append(ids, issueID)
		}
	}
	return ids, nil
}

// assignFailingRepository breaks the standalone assignment write.
type assignFailingRepository struct {
	*mockRepository
	err         error
	assignCalls int
}

func (r *assignFailingRepository) Assign(context.Context, int64, int64) error {
	r.assignCalls++
	return r.err
}

type mockUsers struct {
	users map[int64]*user.User
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type stubLocator struct {
	point *geo.Point
	err   error
	calls int
}

func (s *stubLocator) Locate(context.Context, string) (*geo.Point, error) {
	s.calls++
	return s.point, s.err
}

const (
	citizenID    int64 = 1
	otherCitizen int64 = 2
	waterAdminID int64 = 10
	waterAdmin2  int64 = 11
	roadsAdminID int64 = 12
	superID      int64 = 99
)

var (
	citizen    = &internal.Identity{UserID: citizenID, Role: "citizen"}
	neighbour  = &internal.Identity{UserID: otherCitizen, Role: "citizen"}
	waterA     = &internal.Identity{UserID: waterAdminID, Role: "admin", Department: "Water & Sanitation"}
	waterB     = &internal.Identity{UserID: waterAdmin2, Role: "admin", Department: "Water & Sanitation"}
	roadsAdmin = &internal.Identity{UserID: roadsAdminID, Role: "admin", Department: "Public Works Department"}
	superAdmin = &internal.Identity{UserID: superID, Role: "superadmin"}
)

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64 { return &v }

var _ = Describe("Issue Service", func() {
	var (
		repo      *mockRepository
		users     *mockUsers
		storage   *media.MemoryStorage
		locator   *stubLocator
		publisher *recordingPublisher
		service   *issue.Service
		ctx       context.Context
	)

	newDraft := func(category string) issue.CreateIssueDTO {
		return issue.CreateIssueDTO{
			Title:       "Burst pipe",
			Description: "Water gushing onto the road",
			Category:    category,
			Location:    "5th Cross, Indiranagar",
		}
	}

	submit := func(category string) *issue.Issue {
		created, err := service.Create(ctx, citizen, newDraft(category), nil)
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		users = &mockUsers{users: map[int64]*user.User{
			citizenID:    {ID: citizenID, Name: "Asha", Email: "asha@example.com", Role: user.RoleCitizen, Phone: "555-0101", Address: "12 Lake Road", IsActive: true},
			otherCitizen: {ID: otherCitizen, Name: "Ravi", Email: "ravi@example.com", Role: user.RoleCitizen, IsActive: true},
			waterAdminID: {ID: waterAdminID, Role: user.RoleAdmin, Department: "Water & Sanitation", IsActive: true},
			waterAdmin2:  {ID: waterAdmin2, Role: user.RoleAdmin, Department: "Water & Sanitation", IsActive: true},
			roadsAdminID: {ID: roadsAdminID, Role: user.RoleAdmin, Department: "Public Works Department", IsActive: true},
			superID:      {ID: superID, Role: user.RoleSuperAdmin, IsActive: true},
		}}
		storage = media.NewMemoryStorage("http://media.local")
		locator = &stubLocator{err: geo.ErrNoMatch}
		publisher = &recordingPublisher{}
		service = issue.NewService(issue.Dependencies{
			Repository: repo,
			Users:      users,
			Storage:    storage,
			Locator:    locator,
			Publisher:  publisher,
			Logger:     slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
		})
	})

	Describe("Create", func() {
		It("should open the issue with defaults and credit the reporter", func() {
			created := submit("Water & Sanitation")

			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.Status).To(Equal(issue.StatusOpen))
			Expect(created.Priority).To(Equal(issue.PriorityMedium))
			Expect(created.Upvotes).To(Equal(int64(1)))
			Expect(created.AssignedAdmin).To(BeNil())
			Expect(created.AssignedOfficer).To(Equal(issue.DefaultOfficerLabel))
			Expect(created.Timeline).To(Equal(issue.DefaultTimeline))
			Expect(created.ReportedBy).To(Equal(citizenID))
			Expect(created.ReporterContact).To(Equal("555-0101"))
			Expect(created.ReporterAddress).To(Equal("12 Lake Road"))
			Expect(repo.points[citizenID]).To(Equal(issue.ReportPoints))
			Expect(publisher.types()).To(ConsistOf(events.EventTypeIssueCreated))
		})

		It("should fall back to the email when the reporter has no phone", func() {
			created, err := service.Create(ctx, neighbour, newDraft("Public Safety"), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ReporterContact).To(Equal("ravi@example.com"))
		})

		It("should refuse staff submissions", func() {
			_, err := service.Create(ctx, waterA, newDraft("Water & Sanitation"), nil)
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))
			Expect(repo.issues).To(BeEmpty())
		})

		DescribeTable("validation failures",
			func(mutate func(*issue.CreateIssueDTO), message string) {
				draft := newDraft("Water & Sanitation")
				mutate(&draft)

				_, err := service.Create(ctx, citizen, draft, nil)

				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
				Expect(appErr.GetDetailedMessage()).To(ContainSubstring(message))
				Expect(repo.issues).To(BeEmpty())
			},
			Entry("missing title", func(d *issue.CreateIssueDTO) { d.Title = "  " }, "title is required"),
			Entry("missing description", func(d *issue.CreateIssueDTO) { d.Description = "" }, "description is required"),
			Entry("missing location", func(d *issue.CreateIssueDTO) { d.Location = "" }, "location is required"),
			Entry("missing category", func(d *issue.CreateIssueDTO) { d.Category = "" }, "category is required"),
			Entry("unknown category", func(d *issue.CreateIssueDTO) { d.Category = "Potholes" }, "category must be one of"),
			Entry("unknown priority", func(d *issue.CreateIssueDTO) { d.Priority = "Urgent" }, "priority must be one of"),
			Entry("latitude out of range", func(d *issue.CreateIssueDTO) {
				lat, lng := 120.0, 10.0
				d.Lat, d.Lng = &lat, &lng
			}, "lat must be between"),
			Entry("lat without lng", func(d *issue.CreateIssueDTO) {
				lat := 12.0
				d.Lat = &lat
			}, "given together"),
		)

		It("should keep supplied coordinates without asking the locator", func() {
			draft := newDraft("Water & Sanitation")
			lat, lng := 12.97, 77.59
			draft.Lat, draft.Lng = &lat, &lng

			created, err := service.Create(ctx, citizen, draft, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Coordinates).To(Equal(&issue.Coordinates{Lat: 12.97, Lng: 77.59}))
			Expect(locator.calls).To(BeZero())
		})

		It("should use the locator when no coordinates are given", func() {
			locator.err = nil
			locator.point = &geo.Point{Lat: 1, Lng: 2}

			created := submit("Water & Sanitation")
			Expect(created.Coordinates).To(Equal(&issue.Coordinates{Lat: 1, Lng: 2}))
		})

		It("should carry on without coordinates when the locator fails", func() {
			locator.err = errors.New("timeout")

			created := submit("Water & Sanitation")
			Expect(created.Coordinates).To(BeNil())
		})

		It("should store images in order", func() {
			uploads := []media.Upload{
				{Filename: "one.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("one")},
				{Filename: "two.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("two")},
			}

			created, err := service.Create(ctx, citizen, newDraft("Roads & Transportation"), uploads)
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Images).To(HaveLen(2))
			Expect(created.Images[0]).To(HaveSuffix(".jpg"))
			Expect(created.Images[1]).To(HaveSuffix(".png"))
			Expect(storage.Len()).To(Equal(2))
		})

		It("should reject unsupported files before uploading anything", func() {
			uploads := []media.Upload{
				{Filename: "one.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("one")},
				{Filename: "virus.exe", ContentType: "application/octet-stream", Size: 3, Body: strings.NewReader("bad")},
			}

			_, err := service.Create(ctx, citizen, newDraft("Roads & Transportation"), uploads)
			Expect(err).To(HaveOccurred())
			Expect(storage.Len()).To(BeZero())
		})

		It("should remove uploaded images when the insert fails", func() {
			repo.shouldFail = true
			repo.failError = errors.New("db down")
			uploads := []media.Upload{
				{Filename: "one.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("one")},
			}

			_, err := service.Create(ctx, citizen, newDraft("Roads & Transportation"), uploads)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
			Expect(storage.Len()).To(BeZero())
			Expect(publisher.types()).To(BeEmpty())
		})

		It("should remove uploaded images when the request is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			uploads := []media.Upload{
				{Filename: "one.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("one")},
			}

			_, err := service.Create(cancelled, citizen, newDraft("Roads & Transportation"), uploads)
			Expect(err).To(HaveOccurred())
			Expect(storage.Len()).To(BeZero())
			Expect(repo.issues).To(BeEmpty())
		})

		It("should report the media store as unavailable", func() {
			storage.FailPut = true
			uploads := []media.Upload{
				{Filename: "one.jpg", ContentType: "image/jpeg", Size: 3, Body: strings.NewReader("one")},
			}

			_, err := service.Create(ctx, citizen, newDraft("Roads & Transportation"), uploads)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeStorageUnavailable))
			Expect(repo.issues).To(BeEmpty())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			submit("Water & Sanitation")
			second := submit("Roads & Transportation")
			submit("Water & Sanitation")
			inProgress := issue.StatusInProgress
			Expect(repo.Apply(ctx, second.ID, issue.Change{From: issue.StatusOpen, To: &inProgress})).To(Succeed())
		})

		It("should return open issues newest first", func() {
			issues, err := service.List(ctx, issue.ListFilter{Status: "Open"})
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(2))
			Expect(issues[0].ID).To(Equal(int64(3)))
			Expect(issues[1].ID).To(Equal(int64(1)))
		})

		It("should treat all as no constraint", func() {
			issues, err := service.List(ctx, issue.ListFilter{Category: "all", Status: "All", Priority: ""})
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(3))
		})

		It("should reject an unknown status filter", func() {
			_, err := service.List(ctx, issue.ListFilter{Status: "Closed"})
			Expect(err).To(HaveOccurred())
		})

		It("should list a citizen's own reports", func() {
			_, err := service.Create(ctx, neighbour, newDraft("Public Safety"), nil)
			Expect(err).NotTo(HaveOccurred())

			mine, err := service.ListByReporter(ctx, citizen)
			Expect(err).NotTo(HaveOccurred())
			Expect(mine).To(HaveLen(3))
		})
	})

	Describe("Update", func() {
		var waterIssue *issue.Issue

		BeforeEach(func() {
			waterIssue = submit("Water & Sanitation")
		})

		It("should move an issue forward for an admin in scope", func() {
			updated, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{
				Status:          strPtr("In Progress"),
				AssignedOfficer: strPtr("Officer Rao"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(issue.StatusInProgress))
			Expect(updated.AssignedOfficer).To(Equal("Officer Rao"))
			Expect(publisher.types()).To(ContainElement(events.EventTypeIssueStatusChanged))
		})

		It("should let every admin of the department act on an unassigned issue", func() {
			_, err := service.Update(ctx, waterB, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Resolved")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse an admin outside the department", func() {
			_, err := service.Update(ctx, roadsAdmin, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("In Progress")})
			Expect(err).To(MatchError(internal.ErrIssueOutOfScope))
			Expect(repo.issues[waterIssue.ID].Status).To(Equal(issue.StatusOpen))
		})

		It("should refuse citizens", func() {
			_, err := service.Update(ctx, citizen, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Resolved")})
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))
		})

		It("should refuse immutable fields without applying anything", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{
				Status:   strPtr("In Progress"),
				Rejected: []string{"title"},
			})
			Expect(err).To(MatchError(internal.ErrImmutableField))
			Expect(repo.issues[waterIssue.ID].Status).To(Equal(issue.StatusOpen))
		})

		It("should refuse leaving Resolved", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Resolved")})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Open")})
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})

		It("should refuse moving backwards", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("In Progress")})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Open")})
			Expect(err).To(MatchError(internal.ErrInvalidTransition))
		})

		It("should still accept officer edits after Resolved", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Resolved")})
			Expect(err).NotTo(HaveOccurred())

			updated, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{AssignedOfficer: strPtr("Officer Das")})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.AssignedOfficer).To(Equal("Officer Das"))
			Expect(updated.Status).To(Equal(issue.StatusResolved))
		})

		It("should treat the same status as a no-op", func() {
			updated, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{
				Status:          strPtr("Open"),
				AssignedOfficer: strPtr("Officer Rao"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(issue.StatusOpen))
			Expect(updated.AssignedOfficer).To(Equal("Officer Rao"))
			Expect(publisher.types()).NotTo(ContainElement(events.EventTypeIssueStatusChanged))
		})

		It("should report a concurrent status change as a conflict", func() {
			repo.raced = true
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("In Progress")})
			Expect(err).To(MatchError(internal.ErrConcurrentUpdate))
		})

		It("should route assignedAdmin through the superadmin check", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{AssignedAdmin: int64Ptr(waterAdmin2)})
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))

			updated, err := service.Update(ctx, superAdmin, waterIssue.ID, issue.UpdateIssueDTO{AssignedAdmin: int64Ptr(waterAdmin2)})
			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.AssignedAdmin).To(Equal(waterAdmin2))
		})

		It("should apply status and assignment as one write", func() {
			failing := &assignFailingRepository{mockRepository: repo, err: errors.New("db down")}
			service = issue.NewService(issue.Dependencies{
				Repository: failing,
				Users:      users,
				Publisher:  publisher,
				Logger:     slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
			})

			updated, err := service.Update(ctx, superAdmin, waterIssue.ID, issue.UpdateIssueDTO{
				Status:        strPtr("Resolved"),
				AssignedAdmin: int64Ptr(waterAdmin2),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(issue.StatusResolved))
			Expect(*updated.AssignedAdmin).To(Equal(waterAdmin2))
			Expect(failing.assignCalls).To(BeZero())
			Expect(publisher.types()).To(ContainElements(events.EventTypeIssueStatusChanged, events.EventTypeIssueAssigned))
		})

		It("should leave the issue untouched when the combined write fails", func() {
			before := len(publisher.types())
			repo.applyError = errors.New("db down")

			_, err := service.Update(ctx, superAdmin, waterIssue.ID, issue.UpdateIssueDTO{
				Status:          strPtr("Resolved"),
				AssignedOfficer: strPtr("Officer Das"),
				AssignedAdmin:   int64Ptr(waterAdmin2),
			})
			Expect(err).To(HaveOccurred())

			stored := repo.issues[waterIssue.ID]
			Expect(stored.Status).To(Equal(issue.StatusOpen))
			Expect(stored.AssignedAdmin).To(BeNil())
			Expect(stored.AssignedOfficer).To(Equal(issue.DefaultOfficerLabel))
			Expect(publisher.types()).To(HaveLen(before))
		})

		It("should reject an unknown status before reading the store", func() {
			reads := repo.reads
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("Closed")})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(400))
			Expect(repo.reads).To(Equal(reads))
		})

		It("should return not found for an unknown issue", func() {
			_, err := service.Update(ctx, superAdmin, 404, issue.UpdateIssueDTO{Status: strPtr("Resolved")})
			Expect(err).To(MatchError(internal.ErrIssueNotFound))
		})

		It("should reject an empty update", func() {
			_, err := service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Assign", func() {
		var waterIssue *issue.Issue

		BeforeEach(func() {
			waterIssue = submit("Water & Sanitation")
		})

		It("should assign without touching the status", func() {
			updated, err := service.Assign(ctx, superAdmin, waterIssue.ID, roadsAdminID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*updated.AssignedAdmin).To(Equal(roadsAdminID))
			Expect(updated.Status).To(Equal(issue.StatusOpen))
			Expect(publisher.types()).To(ContainElement(events.EventTypeIssueAssigned))
		})

		It("should narrow visibility to the assignee", func() {
			_, err := service.Assign(ctx, superAdmin, waterIssue.ID, waterAdminID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Update(ctx, waterB, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("In Progress")})
			Expect(err).To(MatchError(internal.ErrIssueOutOfScope))

			_, err = service.Update(ctx, waterA, waterIssue.ID, issue.UpdateIssueDTO{Status: strPtr("In Progress")})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse anyone but a superadmin", func() {
			_, err := service.Assign(ctx, waterA, waterIssue.ID, waterAdminID)
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))
			_, err = service.Assign(ctx, citizen, waterIssue.ID, waterAdminID)
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))
		})

		It("should refuse targets that are not admins", func() {
			_, err := service.Assign(ctx, superAdmin, waterIssue.ID, citizenID)
			Expect(err).To(MatchError(internal.ErrAdminNotFound))
			_, err = service.Assign(ctx, superAdmin, waterIssue.ID, 5000)
			Expect(err).To(MatchError(internal.ErrAdminNotFound))
		})

		It("should return not found for an unknown issue", func() {
			_, err := service.Assign(ctx, superAdmin, 404, waterAdminID)
			Expect(err).To(MatchError(internal.ErrIssueNotFound))
		})
	})

	Describe("Upvote", func() {
		var waterIssue *issue.Issue

		BeforeEach(func() {
			waterIssue = submit("Water & Sanitation")
		})

		It("should count one vote per user and credit citizens", func() {
			resp, err := service.Upvote(ctx, neighbour, waterIssue.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Upvotes).To(Equal(int64(2)))
			Expect(repo.points[otherCitizen]).To(Equal(issue.UpvotePoints))

			_, err = service.Upvote(ctx, neighbour, waterIssue.ID)
			Expect(err).To(MatchError(internal.ErrAlreadyVoted))
			Expect(repo.issues[waterIssue.ID].Upvotes).To(Equal(int64(2)))
			Expect(repo.points[otherCitizen]).To(Equal(issue.UpvotePoints))
		})

		It("should allow the reporter to upvote their own issue", func() {
			resp, err := service.Upvote(ctx, citizen, waterIssue.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Upvotes).To(Equal(int64(2)))
		})

		It("should not award points to staff", func() {
			_, err := service.Upvote(ctx, waterA, waterIssue.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.points[waterAdminID]).To(BeZero())
		})

		It("should return not found for an unknown issue", func() {
			_, err := service.Upvote(ctx, neighbour, 404)
			Expect(err).To(MatchError(internal.ErrIssueNotFound))
		})

		It("should count concurrent attempts by one user once", func() {
			var wg sync.WaitGroup
			results := make(chan error, 10)
			for n := 0; n < 10; n++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := service.Upvote(ctx, neighbour, waterIssue.ID)
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			succeeded := 0
			for err := range results {
				if err == nil {
					succeeded++
				} else {
					Expect(err).To(MatchError(internal.ErrAlreadyVoted))
				}
			}
			Expect(succeeded).To(Equal(1))
			Expect(repo.issues[waterIssue.ID].Upvotes).To(Equal(int64(2)))
		})
	})

	Describe("AdminIssues", func() {
		BeforeEach(func() {
			submit("Water & Sanitation")
			submit("Roads & Transportation")
			assigned := submit("Public Safety")
			_, err := service.Assign(ctx, superAdmin, assigned.ID, waterAdminID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should show an admin their department plus their assignments", func() {
			issues, err := service.AdminIssues(ctx, waterA)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(2))
		})

		It("should not show another admin's assignment", func() {
			issues, err := service.AdminIssues(ctx, waterB)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].Category).To(Equal("Water & Sanitation"))
		})

		It("should show a superadmin everything", func() {
			issues, err := service.AdminIssues(ctx, superAdmin)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(3))
		})

		It("should refuse citizens", func() {
			_, err := service.AdminIssues(ctx, citizen)
			Expect(err).To(MatchError(internal.ErrRoleNotPermitted))
		})
	})
})

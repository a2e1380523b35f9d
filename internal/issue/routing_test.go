package issue_test

import (
	"github.com/frahmantamala/civic-report/internal"
	"github.com/frahmantamala/civic-report/internal/issue"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Routing", func() {
	DescribeTable("category to department",
		func(category, department string) {
			dept, ok := issue.DepartmentFor(category)
			Expect(ok).To(BeTrue())
			Expect(dept).To(Equal(department))
		},
		Entry(nil, "Roads & Transportation", "Public Works Department"),
		Entry(nil, "Public Infrastructure", "Public Works Department"),
		Entry(nil, "Traffic & Parking", "Traffic Police Department"),
		Entry(nil, "Water & Sanitation", "Water & Sanitation"),
		Entry(nil, "Waste Management", "Sanitation Department"),
		Entry(nil, "Health & Hygiene", "Health Department"),
		Entry(nil, "Public Utilities", "Electricity Department"),
		Entry(nil, "Environmental Issues", "Environment Department"),
		Entry(nil, "Noise Pollution", "Environment Department"),
		Entry(nil, "Public Safety", "Police Department"),
	)

	It("should not route unknown categories", func() {
		_, ok := issue.DepartmentFor("Potholes")
		Expect(ok).To(BeFalse())
	})

	It("should list ten categories and eight departments", func() {
		Expect(issue.Categories()).To(HaveLen(10))
		Expect(issue.Departments()).To(HaveLen(8))
		Expect(issue.CategoriesFor("Environment Department")).To(ConsistOf("Environmental Issues", "Noise Pollution"))
	})

	Describe("VisibleTo", func() {
		var (
			waterIssue *issue.Issue
			adminA     *internal.Identity
			adminB     *internal.Identity
			roadsAdmin *internal.Identity
		)

		BeforeEach(func() {
			waterIssue = &issue.Issue{ID: 1, Category: "Water & Sanitation"}
			adminA = &internal.Identity{UserID: 10, Role: "admin", Department: "Water & Sanitation"}
			adminB = &internal.Identity{UserID: 11, Role: "admin", Department: "Water & Sanitation"}
			roadsAdmin = &internal.Identity{UserID: 12, Role: "admin", Department: "Public Works Department"}
		})

		It("should show an unassigned issue to every admin of the routed department", func() {
			Expect(issue.VisibleTo(waterIssue, adminA)).To(BeTrue())
			Expect(issue.VisibleTo(waterIssue, adminB)).To(BeTrue())
			Expect(issue.VisibleTo(waterIssue, roadsAdmin)).To(BeFalse())
		})

		It("should narrow an assigned issue to its admin", func() {
			assigned := int64(10)
			waterIssue.AssignedAdmin = &assigned

			Expect(issue.VisibleTo(waterIssue, adminA)).To(BeTrue())
			Expect(issue.VisibleTo(waterIssue, adminB)).To(BeFalse())
		})

		It("should follow an assignment across departments", func() {
			assigned := int64(12)
			waterIssue.AssignedAdmin = &assigned

			Expect(issue.VisibleTo(waterIssue, roadsAdmin)).To(BeTrue())
			Expect(issue.VisibleTo(waterIssue, adminA)).To(BeFalse())
		})

		It("should show everything to a superadmin and nothing to citizens", func() {
			Expect(issue.VisibleTo(waterIssue, &internal.Identity{UserID: 1, Role: "superadmin"})).To(BeTrue())
			Expect(issue.VisibleTo(waterIssue, &internal.Identity{UserID: 2, Role: "citizen"})).To(BeFalse())
			Expect(issue.VisibleTo(waterIssue, nil)).To(BeFalse())
		})
	})
})

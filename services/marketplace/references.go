package marketplace

// OnDelete is the referential action applied to child rows when a parent row is deleted.
type OnDelete string

const (
	Restrict OnDelete = "RESTRICT"
	Cascade  OnDelete = "CASCADE"
)

// Reference is one foreign key edge: Table.Column points at Parent.id.
type Reference struct {
	Table    string
	Column   string
	Parent   string
	OnDelete OnDelete
	Nullable bool
}

// References is the foreign key graph of the marketplace schema. Migrations, the
// in-memory store and user removal all read it.
var References = []Reference{
	{Table: TableGuides, Column: "user_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableGuideSpecialties, Column: "guide_id", Parent: TableGuides, OnDelete: Cascade},
	{Table: TableGuideLanguages, Column: "guide_id", Parent: TableGuides, OnDelete: Cascade},
	{Table: TableTours, Column: "guide_id", Parent: TableGuides, OnDelete: Restrict},
	{Table: TableTourImages, Column: "tour_id", Parent: TableTours, OnDelete: Cascade},
	{Table: TableBookings, Column: "tour_id", Parent: TableTours, OnDelete: Restrict},
	{Table: TableBookings, Column: "tourist_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableBookings, Column: "guide_id", Parent: TableGuides, OnDelete: Restrict},
	{Table: TablePayments, Column: "booking_id", Parent: TableBookings, OnDelete: Restrict},
	{Table: TableReviews, Column: "booking_id", Parent: TableBookings, OnDelete: Restrict},
	{Table: TableReviews, Column: "tourist_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableReviews, Column: "guide_id", Parent: TableGuides, OnDelete: Restrict},
	{Table: TableReviews, Column: "tour_id", Parent: TableTours, OnDelete: Restrict},
	{Table: TableMessages, Column: "sender_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableMessages, Column: "receiver_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableMessages, Column: "booking_id", Parent: TableBookings, OnDelete: Restrict, Nullable: true},
	{Table: TableNewsPosts, Column: "author_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableNewsComments, Column: "post_id", Parent: TableNewsPosts, OnDelete: Cascade},
	{Table: TableNewsComments, Column: "user_id", Parent: TableUsers, OnDelete: Restrict},
	{Table: TableNewsLikes, Column: "post_id", Parent: TableNewsPosts, OnDelete: Cascade},
	{Table: TableNewsLikes, Column: "user_id", Parent: TableUsers, OnDelete: Restrict},
}

// Tables lists every table known to the schema, parents first.
var Tables = []string{
	TableUsers,
	TableGuides,
	TableGuideSpecialties,
	TableGuideLanguages,
	TableTours,
	TableTourImages,
	TableBookings,
	TablePayments,
	TableReviews,
	TableMessages,
	TableNewsPosts,
	TableNewsComments,
	TableNewsLikes,
}

// KnownColumn reports whether table.column is id or a foreign key column in refs.
func KnownColumn(refs []Reference, table, column string) bool {
	if column == "id" {
		return KnownTable(refs, table)
	}
	for _, ref := range refs {
		if ref.Table == table && ref.Column == column {
			return true
		}
	}
	return false
}

// KnownTable reports whether table appears on either side of an edge in refs.
func KnownTable(refs []Reference, table string) bool {
	for _, ref := range refs {
		if ref.Table == table || ref.Parent == table {
			return true
		}
	}
	return false
}

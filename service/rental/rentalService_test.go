package rental

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"bikerental/model"
	bikerepo "bikerental/repository/bike"
	rrepo "bikerental/repository/rental"
	sigrepo "bikerental/repository/signature"
	settingssvc "bikerental/service/settings"
	"bikerental/util/apperr"
)

var validSig = base64.StdEncoding.EncodeToString([]byte("png-bytes"))

type rentalRepoMock struct {
	rrepo.Repo
	insertFn        func(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error)
	insertItemFn    func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error)
	byIDFn          func(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error)
	byIDForUpdateFn func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error)
	itemsFn         func(ctx context.Context, rentalID int64) ([]model.RentalItem, error)
	itemsTxFn       func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error)
	updateItemFn    func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) error
	updateStatusFn  func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error
}

func (m *rentalRepoMock) Insert(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error) {
	return m.insertFn(ctx, tx, r)
}
func (m *rentalRepoMock) InsertItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
	return m.insertItemFn(ctx, tx, item)
}
func (m *rentalRepoMock) ByID(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error) {
	return m.byIDFn(ctx, hotelID, rentalID)
}
func (m *rentalRepoMock) ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
	return m.byIDForUpdateFn(ctx, tx, hotelID, rentalID)
}
func (m *rentalRepoMock) Items(ctx context.Context, rentalID int64) ([]model.RentalItem, error) {
	return m.itemsFn(ctx, rentalID)
}
func (m *rentalRepoMock) ItemsTx(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
	return m.itemsTxFn(ctx, tx, rentalID)
}
func (m *rentalRepoMock) UpdateItem(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) error {
	return m.updateItemFn(ctx, tx, item)
}
func (m *rentalRepoMock) UpdateStatus(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
	return m.updateStatusFn(ctx, tx, rentalID, status, returnAt)
}

type bikeRepoMock struct {
	bikerepo.Repo
	byNumberForUpdateFn func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error)
	byIDForUpdateFn     func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error)
	byIDsFn             func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error)
	setStatusFn         func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error
	setOOOFn            func(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error
}

func (m *bikeRepoMock) ByNumberForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
	return m.byNumberForUpdateFn(ctx, tx, hotelID, number)
}
func (m *bikeRepoMock) ByIDForUpdate(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
	return m.byIDForUpdateFn(ctx, tx, hotelID, bikeID)
}
func (m *bikeRepoMock) ByIDs(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
	return m.byIDsFn(ctx, hotelID, ids)
}
func (m *bikeRepoMock) SetStatus(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
	return m.setStatusFn(ctx, tx, bikeID, status)
}
func (m *bikeRepoMock) SetOutOfOrder(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error {
	return m.setOOOFn(ctx, tx, bikeID, note, since)
}

type sigRepoMock struct {
	sigrepo.Repo
	insertFn func(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error)
}

func (m *sigRepoMock) Insert(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
	return m.insertFn(ctx, tx, s)
}

type settingsMock struct {
	settingssvc.Service
	grace      int
	tncVersion string
}

func (m *settingsMock) GraceMinutes(context.Context, int64) (int, error) { return m.grace, nil }
func (m *settingsMock) TncVersion(context.Context, int64) (string, error) {
	return m.tncVersion, nil
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func availableBike(id int64, number string) *model.Bike {
	return &model.Bike{ID: id, HotelID: 1, Number: number, Type: "city", Status: model.BikeAvailable}
}

func TestCreate_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	bikes := map[string]*model.Bike{
		"3": availableBike(30, "3"),
		"5": availableBike(50, "5"),
	}
	var rentedBikeIDs []int64
	nextItemID := int64(100)

	br := &bikeRepoMock{
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			return bikes[number], nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			require.Equal(t, model.BikeRented, status)
			rentedBikeIDs = append(rentedBikeIDs, bikeID)
			return nil
		},
	}
	rr := &rentalRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error) {
			require.Equal(t, model.RentalActive, r.Status)
			require.Equal(t, int64(77), r.SignatureID)
			return 9, nil
		},
		insertItemFn: func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
			require.Equal(t, int64(9), item.RentalID)
			nextItemID++
			return nextItemID, nil
		},
	}
	sr := &sigRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
			require.Equal(t, []byte("png-bytes"), s.Data)
			return 77, nil
		},
	}

	svc := New(db, rr, br, sr, &settingsMock{tncVersion: "1.0"})

	out, err := svc.Create(context.Background(), 1, CreateParams{
		BikeNumbers:     []string{"3", "5"},
		RoomNumber:      "101",
		DueAt:           time.Now().Add(24 * time.Hour),
		TncVersion:      "2.0",
		SignatureBase64: validSig,
	})
	require.NoError(t, err)
	require.Equal(t, int64(9), out.Rental.ID)
	require.Equal(t, "2.0", out.Rental.TncVersion)
	require.Len(t, out.Items, 2)
	require.ElementsMatch(t, []int64{30, 50}, rentedBikeIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_CollectsEveryUnavailableBike(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rented := availableBike(20, "2")
	rented.Status = model.BikeRented
	broken := availableBike(40, "4")
	broken.Status = model.BikeOutOfOrder

	inserted := false
	br := &bikeRepoMock{
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			switch number {
			case "2":
				return rented, nil
			case "4":
				return broken, nil
			default:
				return nil, nil
			}
		},
	}
	sr := &sigRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
			inserted = true
			return 0, nil
		},
	}

	svc := New(db, &rentalRepoMock{}, br, sr, &settingsMock{tncVersion: "1.0"})

	_, err := svc.Create(context.Background(), 1, CreateParams{
		BikeNumbers:     []string{"2", "4", "99"},
		RoomNumber:      "101",
		DueAt:           time.Now().Add(time.Hour),
		TncVersion:      "1.0",
		SignatureBase64: validSig,
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	details := apperr.BikesOf(err)
	require.Len(t, details, 3)
	byNumber := map[string]string{}
	for _, d := range details {
		byNumber[d.BikeNumber] = d.Reason
	}
	require.Equal(t, apperr.ReasonAlreadyRented, byNumber["2"])
	require.Equal(t, apperr.ReasonOutOfOrder, byNumber["4"])
	require.Equal(t, apperr.ReasonNotFound, byNumber["99"])

	require.False(t, inserted, "nothing may be written when any bike is unavailable")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_BadInput(t *testing.T) {
	db, _ := newMockDB(t)
	svc := New(db, &rentalRepoMock{}, &bikeRepoMock{}, &sigRepoMock{}, &settingsMock{tncVersion: "1.0"})
	ctx := context.Background()

	cases := []struct {
		name string
		p    CreateParams
	}{
		{"no bikes", CreateParams{
			RoomNumber: "101", DueAt: time.Now().Add(time.Hour), SignatureBase64: validSig,
		}},
		{"past due date", CreateParams{
			BikeNumbers: []string{"1"}, RoomNumber: "101",
			DueAt: time.Now().Add(-time.Hour), SignatureBase64: validSig,
		}},
		{"duplicate bike numbers", CreateParams{
			BikeNumbers: []string{"1", "1"}, RoomNumber: "101",
			DueAt: time.Now().Add(time.Hour), SignatureBase64: validSig,
		}},
		{"bad signature", CreateParams{
			BikeNumbers: []string{"1"}, RoomNumber: "101",
			DueAt: time.Now().Add(time.Hour), SignatureBase64: "%%%not-base64%%%",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, tc.p)
			require.Error(t, err)
			require.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
		})
	}
}

// rentedBikeIndexErr is what the partial unique index on RENTED items raises
// when a concurrent transaction won the bike first.
func rentedBikeIndexErr() error {
	return &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "uq_rental_item_rented_bike",
	}
}

func TestCreate_RacedBikeSurfacesAsAlreadyRented(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	br := &bikeRepoMock{
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			return availableBike(70, "7"), nil
		},
	}
	rr := &rentalRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error) {
			return 9, nil
		},
		insertItemFn: func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
			return 0, rentedBikeIndexErr()
		},
	}
	sr := &sigRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
			return 77, nil
		},
	}

	svc := New(db, rr, br, sr, &settingsMock{tncVersion: "1.0"})

	_, err := svc.Create(context.Background(), 1, CreateParams{
		BikeNumbers:     []string{"7"},
		RoomNumber:      "101",
		DueAt:           time.Now().Add(time.Hour),
		TncVersion:      "1.0",
		SignatureBase64: validSig,
	})
	require.Error(t, err)
	require.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	details := apperr.BikesOf(err)
	require.Len(t, details, 1)
	require.Equal(t, "7", details[0].BikeNumber)
	require.Equal(t, apperr.ReasonAlreadyRented, details[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_ForeignUniqueViolationPassesThrough(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	br := &bikeRepoMock{
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			return availableBike(70, "7"), nil
		},
	}
	rr := &rentalRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, r *model.Rental) (int64, error) {
			return 9, nil
		},
		insertItemFn: func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
			return 0, &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "rental_items_pkey"}
		},
	}
	sr := &sigRepoMock{
		insertFn: func(ctx context.Context, tx *sqlx.Tx, s *model.Signature) (int64, error) {
			return 77, nil
		},
	}

	svc := New(db, rr, br, sr, &settingsMock{tncVersion: "1.0"})

	_, err := svc.Create(context.Background(), 1, CreateParams{
		BikeNumbers:     []string{"7"},
		RoomNumber:      "101",
		DueAt:           time.Now().Add(time.Hour),
		TncVersion:      "1.0",
		SignatureBase64: validSig,
	})
	require.Error(t, err)
	// Only the rented-bike index gets the unavailability treatment.
	require.NotEqual(t, apperr.KindUnavailable, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnItem_LastItemClosesRental(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rentalRow := &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive, DueAt: time.Now().Add(time.Hour)}
	item := model.RentalItem{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}

	var freed []int64
	var persistedStatus model.RentalStatus
	var persistedReturnAt *time.Time

	br := &bikeRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
			return &model.Bike{ID: 30, Number: "3", Status: model.BikeRented}, nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			require.Equal(t, model.BikeAvailable, status)
			freed = append(freed, bikeID)
			return nil
		},
	}
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return rentalRow, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{item}, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error {
			require.Equal(t, model.ItemReturned, it.Status)
			require.NotNil(t, it.ReturnedAt)
			return nil
		},
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			persistedStatus = status
			persistedReturnAt = returnAt
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.ReturnItem(context.Background(), 1, 5, 100)
	require.NoError(t, err)
	require.True(t, out.RentalClosed)
	require.Equal(t, model.RentalClosed, out.RentalStatus)
	require.Equal(t, model.RentalClosed, persistedStatus)
	require.NotNil(t, persistedReturnAt)
	require.Equal(t, []int64{30}, freed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnItem_AlreadyReturnedConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemReturned}}, nil
		},
	}

	svc := New(db, rr, &bikeRepoMock{}, &sigRepoMock{}, &settingsMock{})

	_, err := svc.ReturnItem(context.Background(), 1, 5, 100)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnItem_OutOfOrderBikeStaysSidelined(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	statusChanged := false
	br := &bikeRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
			return &model.Bike{ID: 30, Number: "3", Status: model.BikeOutOfOrder}, nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			statusChanged = true
			return nil
		},
	}
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}}, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error { return nil },
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.ReturnItem(context.Background(), 1, 5, 100)
	require.NoError(t, err)
	require.Equal(t, model.ItemReturned, out.ItemStatus)
	require.False(t, statusChanged, "an out-of-order bike must not be made available by a return")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkLost_SidelinesBikeAndClosesRental(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	var oooNote string
	br := &bikeRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
			return &model.Bike{ID: 30, Number: "3", Status: model.BikeRented}, nil
		},
		setOOOFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, note string, since time.Time) error {
			oooNote = note
			return nil
		},
	}
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalOverdue}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}}, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error {
			require.Equal(t, model.ItemLost, it.Status)
			return nil
		},
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			require.Equal(t, model.RentalClosed, status)
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	reason := "guest reported it stolen"
	out, err := svc.MarkLost(context.Background(), 1, 5, 100, &reason)
	require.NoError(t, err)
	require.Equal(t, model.ItemLost, out.ItemStatus)
	require.True(t, out.RentalClosed)
	require.Contains(t, oooNote, "rental #5")
	require.Contains(t, oooNote, "guest reported it stolen")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoReturn_ReopensClosedRental(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	returnedAt := time.Now().Add(-5 * time.Minute)
	closedAt := returnedAt

	var bikeStatus model.BikeStatus
	br := &bikeRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
			return &model.Bike{ID: 30, Number: "3", Status: model.BikeAvailable}, nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			bikeStatus = status
			return nil
		},
	}
	var reopened bool
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalClosed, ReturnAt: &closedAt}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemReturned, ReturnedAt: &returnedAt}}, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error {
			require.Equal(t, model.ItemRented, it.Status)
			require.Nil(t, it.ReturnedAt)
			return nil
		},
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			require.Equal(t, model.RentalActive, status)
			require.Nil(t, returnAt)
			reopened = true
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.UndoReturn(context.Background(), 1, 5, 100)
	require.NoError(t, err)
	require.Equal(t, model.ItemRented, out.ItemStatus)
	require.Equal(t, model.RentalActive, out.RentalStatus)
	require.Equal(t, model.BikeRented, bikeStatus)
	require.True(t, reopened)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoReturn_LostItemConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalClosed}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemLost}}, nil
		},
	}

	svc := New(db, rr, &bikeRepoMock{}, &sigRepoMock{}, &settingsMock{})

	_, err := svc.UndoReturn(context.Background(), 1, 5, 100)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUndoReturn_BikeRentedElsewhereConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	returnedAt := time.Now().Add(-5 * time.Minute)
	br := &bikeRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, bikeID int64) (*model.Bike, error) {
			return &model.Bike{ID: 30, Number: "3", Status: model.BikeRented}, nil
		},
	}
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemReturned, ReturnedAt: &returnedAt}}, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error {
			return rentedBikeIndexErr()
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	_, err := svc.UndoReturn(context.Background(), 1, 5, 100)
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.ErrorContains(t, err, "bike 3 is rented on another contract")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBike_ClosedRentalConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalClosed}, nil
		},
	}

	svc := New(db, rr, &bikeRepoMock{}, &sigRepoMock{}, &settingsMock{})

	_, err := svc.AddBike(context.Background(), 1, 5, "8")
	require.Error(t, err)
	require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBike_DuplicateInRental(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}}, nil
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{{ID: 30, Number: "8"}}, nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	_, err := svc.AddBike(context.Background(), 1, 5, "8")
	require.Error(t, err)
	require.Equal(t, apperr.KindBadInput, apperr.KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBike_Success(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}}, nil
		},
		insertItemFn: func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
			require.Equal(t, int64(80), item.BikeID)
			return 101, nil
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{{ID: 30, Number: "3"}}, nil
		},
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			return availableBike(80, "8"), nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			require.Equal(t, int64(80), bikeID)
			require.Equal(t, model.BikeRented, status)
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.AddBike(context.Background(), 1, 5, "8")
	require.NoError(t, err)
	require.Equal(t, int64(101), out.ItemID)
	require.Equal(t, "8", out.BikeNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddBike_RacedBikeSurfacesAsAlreadyRented(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented}}, nil
		},
		insertItemFn: func(ctx context.Context, tx *sqlx.Tx, item *model.RentalItem) (int64, error) {
			return 0, rentedBikeIndexErr()
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{{ID: 30, Number: "3"}}, nil
		},
		byNumberForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID int64, number string) (*model.Bike, error) {
			return availableBike(80, "8"), nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	_, err := svc.AddBike(context.Background(), 1, 5, "8")
	require.Error(t, err)
	require.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))

	details := apperr.BikesOf(err)
	require.Len(t, details, 1)
	require.Equal(t, "8", details[0].BikeNumber)
	require.Equal(t, apperr.ReasonAlreadyRented, details[0].Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnSelected_SkipsNonRented(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	items := []model.RentalItem{
		{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented},
		{ID: 101, RentalID: 5, BikeID: 40, Status: model.ItemReturned},
		{ID: 102, RentalID: 5, BikeID: 50, Status: model.ItemRented},
	}

	var updatedItems []int64
	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive, DueAt: time.Now().Add(time.Hour)}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return items, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error {
			updatedItems = append(updatedItems, it.ID)
			return nil
		},
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			return nil
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{
				{ID: 30, Number: "3", Status: model.BikeRented},
				{ID: 40, Number: "4", Status: model.BikeAvailable},
				{ID: 50, Number: "5", Status: model.BikeRented},
			}, nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	// 100 is rented and selected, 101 is already returned, 102 is not selected.
	out, err := svc.ReturnSelected(context.Background(), 1, 5, []int64{100, 101})
	require.NoError(t, err)
	require.Equal(t, 1, out.ReturnedCount)
	require.Equal(t, []int64{100}, updatedItems)
	require.Equal(t, model.RentalActive, out.RentalStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReturnAll_ClosesRental(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	items := []model.RentalItem{
		{ID: 100, RentalID: 5, BikeID: 30, Status: model.ItemRented},
		{ID: 101, RentalID: 5, BikeID: 40, Status: model.ItemRented},
	}

	rr := &rentalRepoMock{
		byIDForUpdateFn: func(ctx context.Context, tx *sqlx.Tx, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalOverdue, DueAt: time.Now().Add(-time.Hour)}, nil
		},
		itemsTxFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64) ([]model.RentalItem, error) {
			return items, nil
		},
		updateItemFn: func(ctx context.Context, tx *sqlx.Tx, it *model.RentalItem) error { return nil },
		updateStatusFn: func(ctx context.Context, tx *sqlx.Tx, rentalID int64, status model.RentalStatus, returnAt *time.Time) error {
			require.Equal(t, model.RentalClosed, status)
			require.NotNil(t, returnAt)
			return nil
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return []model.Bike{
				{ID: 30, Number: "3", Status: model.BikeRented},
				{ID: 40, Number: "4", Status: model.BikeRented},
			}, nil
		},
		setStatusFn: func(ctx context.Context, tx *sqlx.Tx, bikeID int64, status model.BikeStatus) error {
			require.Equal(t, model.BikeAvailable, status)
			return nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.ReturnAll(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Equal(t, 2, out.ReturnedCount)
	require.Equal(t, model.RentalClosed, out.RentalStatus)
	require.NotNil(t, out.ReturnAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDetail_UnknownBikeFallback(t *testing.T) {
	db, _ := newMockDB(t)

	rr := &rentalRepoMock{
		byIDFn: func(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error) {
			return &model.Rental{ID: 5, HotelID: 1, Status: model.RentalActive}, nil
		},
		itemsFn: func(ctx context.Context, rentalID int64) ([]model.RentalItem, error) {
			return []model.RentalItem{{ID: 100, RentalID: 5, BikeID: 999, Status: model.ItemRented}}, nil
		},
	}
	br := &bikeRepoMock{
		byIDsFn: func(ctx context.Context, hotelID int64, ids []int64) ([]model.Bike, error) {
			return nil, nil
		},
	}

	svc := New(db, rr, br, &sigRepoMock{}, &settingsMock{})

	out, err := svc.GetDetail(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Equal(t, "Unknown", out.Items[0].BikeNumber)
}

func TestGetDetail_NotFound(t *testing.T) {
	db, _ := newMockDB(t)

	rr := &rentalRepoMock{
		byIDFn: func(ctx context.Context, hotelID, rentalID int64) (*model.Rental, error) {
			return nil, nil
		},
	}

	svc := New(db, rr, &bikeRepoMock{}, &sigRepoMock{}, &settingsMock{})

	_, err := svc.GetDetail(context.Background(), 1, 404)
	require.Error(t, err)
	require.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

package linking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loyalty-backend/docstore"
	"loyalty-backend/models"

	"github.com/sirupsen/logrus"
)

// Resolver links authenticated users to customer records by phone number.
//
// Every exported operation reports failure through its return value: not-found,
// conflicts and store errors are logged and collapse to false, "" or an empty
// slice. Callers treat a negative result as "continue without linking".
type Resolver struct {
	store docstore.Store
	log   *logrus.Logger
}

// Logger returns the logger the resolver reports through.
func (r *Resolver) Logger() *logrus.Logger {
	return r.log
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for collapsed failures.
func WithLogger(l *logrus.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func NewResolver(store docstore.Store, opts ...Option) *Resolver {
	r := &Resolver{store: store, log: logrus.StandardLogger()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type phoneCandidate struct {
	field string
	value string
}

// phoneCandidates lists the customer lookups in priority order: normalized value
// in phone, the raw input in phone (records saved before normalization), then
// the normalized value in phone_normalized.
func phoneCandidates(phone string) []phoneCandidate {
	normalized := NormalizePhone(phone)
	all := []phoneCandidate{
		{models.FieldPhone, normalized},
		{models.FieldPhone, phone},
		{models.FieldPhoneNormalized, normalized},
	}

	var out []phoneCandidate
	for _, c := range all {
		if c.value == "" {
			continue
		}
		dup := false
		for _, seen := range out {
			if seen == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// FindCustomerByPhone returns the first customer matching phone, or nil.
func (r *Resolver) FindCustomerByPhone(ctx context.Context, phone string) *models.Customer {
	customer, err := r.findCustomerByPhone(ctx, phone)
	if err != nil {
		r.log.WithError(err).WithField("phone", phone).Error("customer lookup by phone failed")
		return nil
	}
	return customer
}

func (r *Resolver) findCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if phone == "" {
		return nil, nil
	}
	for _, c := range phoneCandidates(phone) {
		docs, err := r.store.Query(ctx, docstore.Query{
			Collection: models.CollectionCustomers,
			Field:      c.field,
			Value:      c.value,
		})
		if err != nil {
			return nil, fmt.Errorf("query customers by %s: %w", c.field, err)
		}
		if len(docs) > 0 {
			return decodeCustomer(docs[0])
		}
	}
	return nil, nil
}

// GetCustomer returns the customer with the given ID, or nil.
func (r *Resolver) GetCustomer(ctx context.Context, customerID string) *models.Customer {
	if customerID == "" {
		return nil
	}
	doc, err := r.store.Get(ctx, models.CollectionCustomers, customerID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.log.WithError(err).WithField("customer_id", customerID).Error("customer read failed")
		}
		return nil
	}
	customer, err := decodeCustomer(doc)
	if err != nil {
		r.log.WithError(err).WithField("customer_id", customerID).Error("customer decode failed")
		return nil
	}
	return customer
}

// GetUser returns the user with the given ID, or nil.
func (r *Resolver) GetUser(ctx context.Context, userID string) *models.User {
	if userID == "" {
		return nil
	}
	doc, err := r.store.Get(ctx, models.CollectionUsers, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			r.log.WithError(err).WithField("user_id", userID).Error("user read failed")
		}
		return nil
	}
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("user decode failed")
		return nil
	}
	return &user
}

// LinkUserToCustomer sets customer.userId and user.linkedCustomerId in one
// transaction. The first user to claim a customer wins; linking the same pair
// again succeeds without change. A user already linked to another customer is
// refused.
func (r *Resolver) LinkUserToCustomer(ctx context.Context, userID, customerID string) bool {
	entry := r.log.WithFields(logrus.Fields{"user_id": userID, "customer_id": customerID})
	if userID == "" || customerID == "" {
		entry.Warn("link skipped: missing user or customer id")
		return false
	}

	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return r.claimCustomer(tx, userID, customerID, nil)
	})
	if err != nil {
		r.logCollapsed(entry, err, "link user to customer failed")
		return false
	}
	entry.Info("user linked to customer")
	return true
}

// claimCustomer writes the mutual references between userID and customerID.
// extra fields are written onto the customer along with userId. Reads happen
// before any write.
func (r *Resolver) claimCustomer(tx docstore.Tx, userID, customerID string, extra docstore.Fields) error {
	doc, err := tx.Get(models.CollectionCustomers, customerID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrCustomerNotFound
	}
	if err != nil {
		return err
	}
	linkedTo := doc.String(models.FieldUserID)
	if linkedTo != "" && linkedTo != userID {
		return ErrCustomerAlreadyLinked
	}

	userExists, err := checkUserLink(tx, userID, customerID)
	if err != nil {
		return err
	}

	customerFields := docstore.Fields{
		models.FieldUserID:    userID,
		models.FieldUpdatedAt: docstore.ServerTimestamp,
	}
	for k, v := range extra {
		customerFields[k] = v
	}
	if err := tx.Update(models.CollectionCustomers, customerID, customerFields); err != nil {
		return err
	}

	if !userExists {
		return nil
	}
	return tx.Update(models.CollectionUsers, userID, docstore.Fields{
		models.FieldLinkedCustomerID: customerID,
		models.FieldUpdatedAt:        docstore.ServerTimestamp,
	})
}

// ProcessUserRegistration finds or creates the customer for a newly registered
// user and links the two. It returns the customer ID, or "" when no link was made.
func (r *Resolver) ProcessUserRegistration(ctx context.Context, userID, phone, email, name string) string {
	entry := r.log.WithFields(logrus.Fields{"user_id": userID, "phone": phone})
	if phone == "" {
		return ""
	}
	if userID == "" {
		entry.Warn("registration link skipped: missing user id")
		return ""
	}

	existing, err := r.findCustomerByPhone(ctx, phone)
	if err != nil {
		entry.WithError(err).Error("registration link failed: customer lookup")
		return ""
	}

	if existing != nil {
		entry = entry.WithField("customer_id", existing.ID)
		switch existing.UserID {
		case userID:
			return existing.ID
		case "":
		default:
			entry.WithField("linked_user_id", existing.UserID).Warn("registration link refused: customer belongs to another user")
			return ""
		}

		extra := docstore.Fields{}
		if email != "" {
			extra[models.FieldEmail] = email
		}
		err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			// The lookup above ran outside the transaction; claimCustomer re-reads
			// userId so a concurrent claim is caught here.
			return r.claimCustomer(tx, userID, existing.ID, extra)
		})
		if err != nil {
			r.logCollapsed(entry, err, "registration link failed")
			return ""
		}
		entry.Info("registered user linked to existing customer")
		return existing.ID
	}

	customerID := docstore.NewID()
	err = r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return r.createLinkedCustomer(tx, customerID, userID, phone, email, name)
	})
	if err != nil {
		r.logCollapsed(entry, err, "registration link failed: customer create")
		return ""
	}
	entry.WithField("customer_id", customerID).Info("customer created for registered user")
	return customerID
}

func (r *Resolver) createLinkedCustomer(tx docstore.Tx, customerID, userID, phone, email, name string) error {
	userExists, err := checkUserLink(tx, userID, customerID)
	if err != nil {
		return err
	}

	first, last := splitName(name)
	err = tx.Set(models.CollectionCustomers, customerID, docstore.Fields{
		models.FieldFirstName:       first,
		models.FieldLastName:        last,
		models.FieldEmail:           email,
		models.FieldPhone:           phone,
		models.FieldPhoneNormalized: NormalizePhone(phone),
		models.FieldUserID:          userID,
		models.FieldJoinDate:        docstore.ServerTimestamp,
		models.FieldCreatedAt:       docstore.ServerTimestamp,
		models.FieldUpdatedAt:       docstore.ServerTimestamp,
	})
	if err != nil {
		return err
	}

	if !userExists {
		return nil
	}
	return tx.Update(models.CollectionUsers, userID, docstore.Fields{
		models.FieldLinkedCustomerID: customerID,
		models.FieldUpdatedAt:        docstore.ServerTimestamp,
	})
}

// logCollapsed logs an error that is being turned into a negative result.
// Not-found and conflicts are expected outcomes; anything else is a store failure.
func (r *Resolver) logCollapsed(entry *logrus.Entry, err error, msg string) {
	switch {
	case errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrCustomerAlreadyLinked),
		errors.Is(err, ErrUserAlreadyLinked),
		errors.Is(err, ErrInvitationNotFound),
		errors.Is(err, ErrInvitationNotPending):
		entry.WithError(err).Warn(msg)
	default:
		entry.WithError(err).Error(msg)
	}
}

// checkUserLink reads the user document and reports whether it exists. A user
// already linked to a customer other than customerID yields ErrUserAlreadyLinked.
func checkUserLink(tx docstore.Tx, userID, customerID string) (bool, error) {
	doc, err := tx.Get(models.CollectionUsers, userID)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	if linked := doc.String(models.FieldLinkedCustomerID); linked != "" && linked != customerID {
		return true, ErrUserAlreadyLinked
	}
	return true, nil
}

func decodeCustomer(doc *docstore.Document) (*models.Customer, error) {
	var customer models.Customer
	if err := doc.DataTo(&customer); err != nil {
		return nil, fmt.Errorf("decode customer %s: %w", doc.ID, err)
	}
	return &customer, nil
}

// splitName splits on the first space: "Ann van Wyk" gives ("Ann", "van Wyk").
func splitName(name string) (string, string) {
	name = strings.TrimSpace(name)
	first, last, _ := strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// Package ownership decides who may mutate an anonymous content item.
//
// There are two independent proofs: the browser still holds the session token the
// item was created with, or the requester knows the password the author set.
// Either one is enough.
package ownership

import (
	"errors"

	"github.com/vibecoder/vibecoder/credential"
	"github.com/vibecoder/vibecoder/database"
	"github.com/vibecoder/vibecoder/item"
)

var ErrUnauthorized = errors.New("unauthorized")

// CanMutate reports whether the requester proved ownership of it.
func CanMutate(token, password string, it *item.Item) bool {
	if token != "" && token == it.SessionToken {
		return true
	}
	return it.HasCredential() && credential.Verify(password, it.CredentialHash)
}

type Authority struct {
	store database.ContentStore
}

func New(store database.ContentStore) *Authority {
	return &Authority{store: store}
}

// Delete soft deletes the item. Deleting an already deleted item succeeds again.
func (a *Authority) Delete(it *item.Item, token, password string) error {
	if !CanMutate(token, password, it) {
		return ErrUnauthorized
	}
	if it.IsDeleted {
		return nil
	}
	if err := a.store.MarkDeleted(it.Kind, it.ID); err != nil {
		return err
	}
	it.IsDeleted = true
	return nil
}

// DeleteByID looks the item up and deletes it.
func (a *Authority) DeleteByID(kind item.Kind, id item.ID, token, password string) (*item.Item, error) {
	it, err := a.store.GetItem(kind, id)
	if err != nil {
		return nil, err
	}
	return it, a.Delete(it, token, password)
}

// DeleteBySlug looks the item up by slug and deletes it.
func (a *Authority) DeleteBySlug(kind item.Kind, slug, token, password string) (*item.Item, error) {
	it, err := a.store.GetItemBySlug(kind, slug)
	if err != nil {
		return nil, err
	}
	return it, a.Delete(it, token, password)
}

// Package store implementa el almacenamiento local con escritura write-through
// sobre bbolt. Cada clave guarda un valor JSON completo; las lecturas fallidas
// se tratan como claves vacías para que un archivo corrupto no impida arrancar.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Claves del almacenamiento local
const (
	KeyCurrentUser   = "swaply_current_user"
	KeyUsers         = "swaply_users"
	KeyProducts      = "swaply_products"
	KeyNotifications = "swaply_notifications"
	KeyTrades        = "swaply_trades"
	KeyFavorites     = "swaply_favorites"
	KeyChats         = "swaply_chats"
	KeyMessages      = "swaply_messages"
	KeyTheme         = "theme"
	KeyThemeColor    = "themeColor"
)

var bucketName = []byte("swaply")

// Store envuelve la base bbolt
type Store struct {
	db *bbolt.DB
}

// Open abre (o crea) el archivo de almacenamiento
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("error abriendo almacenamiento local: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creando bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close cierra la base
func (s *Store) Close() error {
	return s.db.Close()
}

// Put serializa el valor como JSON y lo escribe bajo la clave
func (s *Store) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error serializando %s: %w", key, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), data)
	})
}

// Get lee y deserializa el valor de la clave. Devuelve false si la clave no
// existe o si el valor guardado no se puede deserializar.
func (s *Store) Get(key string, out any) (bool, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Valor corrupto: se trata como ausente
		return false, nil
	}
	return true, nil
}

// Delete elimina la clave
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

package repository

import "github.com/tu-usuario/certificacion-sii/internal/domain/entity"

// BookRepository puerto de persistencia de libros de compra/venta.
type BookRepository interface {
	Create(book *entity.Book) error
	Update(book *entity.Book) error
	CreateLine(line *entity.BookLine) error
	// GetByID devuelve el libro con sus líneas cargadas.
	GetByID(id string) (*entity.Book, error)
	ListByProject(projectID string) ([]*entity.Book, error)
	DeleteLines(bookID string) error
	Delete(id string) error
}

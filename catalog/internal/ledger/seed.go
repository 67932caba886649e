package ledger

import (
	"github.com/Astemirdum/bookish-library/catalog/internal/model"
)

func year(y int) *int { return &y }

// DemoCatalog is the starter collection loaded when seeding is enabled.
func DemoCatalog() []model.AddBookRequest {
	return []model.AddBookRequest{
		{
			Title:         "The Great Gatsby",
			Author:        "F. Scott Fitzgerald",
			Genre:         "Classic Literature",
			TotalCopies:   5,
			Description:   "A classic American novel set in the Jazz Age, exploring themes of wealth, love, and the American Dream.",
			PublishedYear: year(1925),
		},
		{
			Title:         "To Kill a Mockingbird",
			Author:        "Harper Lee",
			Genre:         "Fiction",
			TotalCopies:   4,
			Description:   "A gripping tale of racial injustice and childhood innocence in the American South.",
			PublishedYear: year(1960),
		},
		{
			Title:         "1984",
			Author:        "George Orwell",
			Genre:         "Dystopian Fiction",
			TotalCopies:   6,
			Description:   "A dystopian social science fiction novel about totalitarian control and surveillance.",
			PublishedYear: year(1949),
		},
		{
			Title:         "Pride and Prejudice",
			Author:        "Jane Austen",
			Genre:         "Romance",
			TotalCopies:   3,
			Description:   "A romantic novel that critiques the British landed gentry at the end of the 18th century.",
			PublishedYear: year(1813),
		},
		{
			Title:         "The Catcher in the Rye",
			Author:        "J.D. Salinger",
			Genre:         "Coming of Age",
			TotalCopies:   4,
			Description:   "A controversial novel about teenage rebellion and alienation.",
			PublishedYear: year(1951),
		},
		{
			Title:         "Harry Potter and the Philosopher's Stone",
			Author:        "J.K. Rowling",
			Genre:         "Fantasy",
			TotalCopies:   8,
			Description:   "The first book in the beloved Harry Potter series about a young wizard's adventures.",
			PublishedYear: year(1997),
		},
	}
}

func (l *Ledger) Seed(books []model.AddBookRequest) []model.Book {
	added := make([]model.Book, 0, len(books))
	for _, req := range books {
		added = append(added, l.AddBook(req))
	}
	return added
}

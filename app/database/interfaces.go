package database

type ArticleReader interface {
	GetByID(id string) (*Article, error)
	GetBySourceURL(sourceURL string) (*Article, error)
	List(opts ListOptions) ([]Article, error)
	GetStats() (total, summarized, failed int, err error)
}

type ArticleWriter interface {
	Upsert(article *Article) error
	RecordError(sourceURL, message string) error
	IsRetryExhausted(sourceURL string) (bool, error)
	SoftDelete(id string) error
}

type ArticleStore interface {
	ArticleReader
	ArticleWriter
}

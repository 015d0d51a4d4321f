package libsql_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/crosstalkco/crosstalk/pkg/archive"
	"github.com/crosstalkco/crosstalk/pkg/archive/libsql"
)

var _ = Describe("Driver", func() {
	var (
		driver *libsql.Driver
		dbPath string
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		dbPath = filepath.Join(GinkgoT().TempDir(), "archive.db")

		var err error
		driver, err = libsql.NewDriver("file:" + dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if driver != nil {
			driver.Close()
		}
	})

	Describe("NewDriver", func() {
		It("creates the local database file", func() {
			_, err := os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Save and Get", func() {
		It("round-trips a record through the embedded sqlite driver", func() {
			finished := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
			record := &archive.Record{
				ID:         "conv-1",
				Topic:      "the future of railways",
				ModelA:     "gpt-4.1-mini",
				ModelB:     "gpt-4.1-nano",
				Turns:      4,
				StartedAt:  finished.Add(-5 * time.Minute),
				FinishedAt: finished,
				Transcript: json.RawMessage(`[{"turn":1,"speaker":"A","content":"Trains are underrated."}]`),
			}

			Expect(driver.Save(ctx, record)).To(Succeed())

			retrieved, err := driver.Get(ctx, "conv-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Topic).To(Equal("the future of railways"))
			Expect(retrieved.FinishedAt).To(BeTemporally("==", finished))
			Expect(retrieved.Transcript).To(MatchJSON(record.Transcript))

			records, err := driver.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("returns NotFoundError for an unknown conversation", func() {
			_, err := driver.Get(ctx, "nonexistent")
			Expect(err).To(HaveOccurred())

			var notFoundErr archive.NotFoundError
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})
	})
})

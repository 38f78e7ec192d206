package abook

const (
	labelPrefix  string = "Roundcube:"
	labelDefault string = "Roundcube:default"
)

// Match returns the labels of every address book, across all recipients,
// that contains the sender address. A recipient address identifies the book
// owner, not a match target. Labels are distinct and keep first-discovery
// order. Matching never fails: an absent gateway or a broken query for one
// recipient degrades to fewer results.
func Match(from string, rcpts []Recipient, gw Gateway, logger *Logger) []string {
	logger.Debug("search in the roundcube database, from: %s, recipients: %d", from, len(rcpts))

	if gw == nil {
		logger.Log("could not connect to the database")
		return nil
	}

	var sources []string
	for _, rcpt := range rcpts {
		owner := NormalizeAddr(rcpt.Addr)

		books, err := gw.FindBooks(owner, from)
		if err != nil {
			logger.Log("error when searching in address database: %s", err)
			continue
		}
		logger.Debug("records found for %s: %d", owner, len(books))

		for _, name := range books {
			source := labelDefault
			if name != "" {
				source = labelPrefix + name
			}
			if !containsLabel(sources, source) {
				sources = append(sources, source)
			}
		}
	}

	return sources
}

func containsLabel(sources []string, source string) bool {
	for _, s := range sources {
		if s == source {
			return true
		}
	}
	return false
}

package views

import (
	"sort"
	"strings"

	"printdesk/internal/repo"
)

type scoredOrder struct {
	order repo.Order
	score int
}

// SearchOrders ranks orders against a free-text query over the
// description, status, specification fields and the lead's name and
// phone. Non-matching orders are dropped.
func SearchOrders(orders []repo.Order, query string) []repo.Order {
	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return orders
	}

	var scored []scoredOrder
	for _, o := range orders {
		score := orderScore(o, tokens)
		if score > 0 {
			scored = append(scored, scoredOrder{order: o, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]repo.Order, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.order)
	}
	return out
}

func orderScore(o repo.Order, tokens []string) int {
	description := strings.ToLower(derefString(o.Description))
	status := strings.ToLower(o.Status)
	material := strings.ToLower(derefString(o.Material))
	var leadName, leadPhone string
	if o.Lead != nil {
		leadName = strings.ToLower(o.Lead.Name)
		leadPhone = o.Lead.PhoneNumber
	}

	score := 0
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if strings.Contains(leadName, token) {
			score += 5
		}
		if strings.Contains(leadPhone, token) {
			score += 5
		}
		if strings.Contains(description, token) {
			score += 4
		}
		if strings.Contains(material, token) {
			score += 3
		}
		if strings.Contains(status, token) {
			score += 2
		}
		if strings.HasPrefix(o.ID, token) {
			score += 6
		}
	}
	return score
}

type scoredLead struct {
	lead  repo.Lead
	score int
}

// SearchLeads ranks leads against a free-text query over name, phone,
// email, RUT and business name.
func SearchLeads(leads []repo.Lead, query string) []repo.Lead {
	tokens := tokenizeQuery(query)
	if len(tokens) == 0 {
		return leads
	}

	var scored []scoredLead
	for _, l := range leads {
		score := leadScore(l, tokens)
		if score > 0 {
			scored = append(scored, scoredLead{lead: l, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]repo.Lead, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.lead)
	}
	return out
}

func leadScore(l repo.Lead, tokens []string) int {
	name := strings.ToLower(l.Name)
	email := strings.ToLower(derefString(l.Email))
	rut := strings.ToLower(derefString(l.RUT))
	business := strings.ToLower(derefString(l.BusinessName))

	score := 0
	for _, token := range tokens {
		if token == "" {
			continue
		}
		if strings.Contains(name, token) {
			score += 5
		}
		if strings.Contains(l.PhoneNumber, token) {
			score += 5
		}
		if strings.Contains(email, token) {
			score += 3
		}
		if strings.Contains(rut, token) {
			score += 3
		}
		if strings.Contains(business, token) {
			score += 3
		}
	}
	return score
}

func tokenizeQuery(query string) []string {
	query = strings.TrimSpace(strings.ToLower(query))
	if query == "" {
		return nil
	}
	query = strings.ReplaceAll(query, ".", " ")
	query = strings.ReplaceAll(query, ",", " ")
	rawTokens := strings.Fields(query)
	expanded := make([]string, 0, len(rawTokens)*2)
	for _, token := range rawTokens {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		expanded = append(expanded, token)
		if strings.ContainsAny(token, "0123456789") && strings.ContainsAny(token, "abcdefghijklmnopqrstuvwxyz") {
			builder := strings.Builder{}
			for _, r := range token {
				if r >= '0' && r <= '9' {
					builder.WriteRune(r)
				}
			}
			if builder.Len() > 0 {
				expanded = append(expanded, builder.String())
			}
		}
	}
	return expanded
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

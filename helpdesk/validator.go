package main

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var upnPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("upn", func(fl validator.FieldLevel) bool {
		return upnPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// validateProvisioningRequest checks a sanitized request tree and returns every problem found.
// An empty result means the tree can be decoded into a ProvisioningRequest.
func validateProvisioningRequest(tree map[string]interface{}) []string {
	problems := []string{}
	problems = append(problems, checkRequiredString(tree, "TenantId", "TenantId")...)
	problems = append(problems, checkRequiredString(tree, "TicketId", "TicketId")...)
	problems = append(problems, checkAccountDetails(tree)...)
	if licenses, ok := lookupField(tree, "LicenseTypes"); ok {
		problems = append(problems, checkStringList(licenses, "LicenseTypes")...)
	}
	problems = append(problems, checkGroups(tree)...)
	return problems
}

// foldDuplicateFields collapses keys that differ only by case, so validation
// and decoding read the same value. Blank copies give way to a filled one;
// copies holding different values are reported as problems.
func foldDuplicateFields(obj map[string]interface{}, path string) (problems, warnings []string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	variants := map[string][]string{}
	order := []string{}
	for _, k := range keys {
		folded := strings.ToLower(k)
		if _, ok := variants[folded]; !ok {
			order = append(order, folded)
		}
		variants[folded] = append(variants[folded], k)
	}

	for _, folded := range order {
		names := variants[folded]
		keep := names[0]
		if len(names) > 1 {
			filled := []string{}
			for _, k := range names {
				if !isBlankValue(obj[k]) {
					filled = append(filled, k)
				}
			}
			conflict := false
			for _, k := range filled[min(1, len(filled)):] {
				if !reflect.DeepEqual(obj[k], obj[filled[0]]) {
					conflict = true
					break
				}
			}
			if conflict {
				problems = append(problems, fmt.Sprintf("%s is supplied more than once with different values (%s)", path+names[0], strings.Join(filled, ", ")))
				continue
			}
			if len(filled) > 0 {
				keep = filled[0]
			}
			for _, k := range names {
				if k != keep {
					delete(obj, k)
					warnings = append(warnings, fmt.Sprintf("%s duplicates %s and was ignored", path+k, path+keep))
				}
			}
		}

		if nested, ok := obj[keep].(map[string]interface{}); ok {
			p, w := foldDuplicateFields(nested, path+keep+".")
			problems = append(problems, p...)
			warnings = append(warnings, w...)
		}
	}
	return problems, warnings
}

func isBlankValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	}
	return false
}

// lookupField finds key in obj, falling back to a case-insensitive match.
func lookupField(obj map[string]interface{}, key string) (interface{}, bool) {
	if value, ok := obj[key]; ok {
		return value, true
	}
	for k, value := range obj {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}

func checkRequiredString(obj map[string]interface{}, key, label string) []string {
	value, ok := lookupField(obj, key)
	if !ok || value == nil {
		return []string{label + " is required"}
	}
	s, isString := value.(string)
	if !isString {
		return []string{label + " must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return []string{label + " is required"}
	}
	if isPlaceholder(s) {
		return []string{label + " is an unresolved placeholder"}
	}
	return nil
}

func checkAccountDetails(tree map[string]interface{}) []string {
	raw, ok := lookupField(tree, "AccountDetails")
	if !ok || raw == nil {
		return []string{"AccountDetails is required"}
	}
	details, isObject := raw.(map[string]interface{})
	if !isObject {
		return []string{"AccountDetails must be an object"}
	}

	problems := checkRequiredString(details, "GivenName", "AccountDetails.GivenName")
	problems = append(problems, checkRequiredString(details, "Surname", "AccountDetails.Surname")...)

	upnProblems := checkRequiredString(details, "UserPrincipalName", "AccountDetails.UserPrincipalName")
	if len(upnProblems) > 0 {
		return append(problems, upnProblems...)
	}
	upnValue, _ := lookupField(details, "UserPrincipalName")
	upn := upnValue.(string)
	if err := requestValidator.Var(upn, "upn"); err != nil {
		problems = append(problems, fmt.Sprintf("AccountDetails.UserPrincipalName %q is not a valid UPN, expected the form user@domain.tld", upn))
	}

	if additional, ok := lookupField(details, "AdditionalDetails"); ok && additional != nil {
		if _, isObject := additional.(map[string]interface{}); !isObject {
			problems = append(problems, "AccountDetails.AdditionalDetails must be an object")
		}
	}
	return problems
}

func checkStringList(value interface{}, label string) []string {
	if value == nil {
		return nil
	}
	list, ok := value.([]interface{})
	if !ok {
		return []string{label + " must be an array"}
	}
	for i, item := range list {
		if _, isString := item.(string); !isString {
			return []string{fmt.Sprintf("%s[%d] must be a string", label, i)}
		}
	}
	return nil
}

func checkGroups(tree map[string]interface{}) []string {
	raw, ok := lookupField(tree, "Groups")
	if !ok || raw == nil {
		return nil
	}
	groups, isObject := raw.(map[string]interface{})
	if !isObject {
		return []string{"Groups must be an object"}
	}

	problems := []string{}
	for _, category := range groupCategories {
		if value, ok := lookupField(groups, category); ok {
			problems = append(problems, checkStringList(value, "Groups."+category)...)
		}
	}

	rawMirror, ok := lookupField(groups, "MirroredUsers")
	if !ok || rawMirror == nil {
		return problems
	}
	mirror, isObject := rawMirror.(map[string]interface{})
	if !isObject {
		return append(problems, "Groups.MirroredUsers must be an object")
	}

	if email, set, problem := mirrorReference(mirror, "MirroredUserEmail"); problem != "" {
		problems = append(problems, problem)
	} else if set {
		if err := requestValidator.Var(email, "email"); err != nil {
			problems = append(problems, fmt.Sprintf("Groups.MirroredUsers.MirroredUserEmail %q is not a valid email address", email))
		}
		if conflicts := specifiedCategories(groups, GROUP_CATEGORY_TEAMS, GROUP_CATEGORY_SECURITY); len(conflicts) > 0 {
			problems = append(problems, fmt.Sprintf("Groups.MirroredUsers.MirroredUserEmail conflicts with %s: Teams and Security groups are inherited from the mirrored user and must not be specified", strings.Join(conflicts, " and ")))
		}
	}

	if _, set, problem := mirrorReference(mirror, "MirroredUserGroups"); problem != "" {
		problems = append(problems, problem)
	} else if set {
		if conflicts := specifiedCategories(groups, GROUP_CATEGORY_DISTRIBUTION, GROUP_CATEGORY_SHARED_MAILBOXES); len(conflicts) > 0 {
			problems = append(problems, fmt.Sprintf("Groups.MirroredUsers.MirroredUserGroups conflicts with %s: Distribution and SharedMailboxes groups are inherited from the mirrored user and must not be specified", strings.Join(conflicts, " and ")))
		}
	}
	return problems
}

func mirrorReference(mirror map[string]interface{}, key string) (string, bool, string) {
	value, ok := lookupField(mirror, key)
	if !ok || value == nil {
		return "", false, ""
	}
	s, isString := value.(string)
	if !isString {
		return "", false, "Groups.MirroredUsers." + key + " must be a string"
	}
	s = strings.TrimSpace(s)
	return s, s != "", ""
}

// specifiedCategories returns the labels of categories holding at least one entry.
func specifiedCategories(groups map[string]interface{}, categories ...string) []string {
	specified := []string{}
	for _, category := range categories {
		value, ok := lookupField(groups, category)
		if !ok || value == nil {
			continue
		}
		if list, isList := value.([]interface{}); isList && len(list) == 0 {
			continue
		}
		specified = append(specified, "Groups."+category)
	}
	return specified
}

package main

type GraphPasswordProfile struct {
	ForceChangePasswordNextSignIn bool   `json:"forceChangePasswordNextSignIn"`
	Password                      string `json:"password"`
}

type GraphErrorResponseBody struct {
	Error GraphErrorResponse `json:"error"`
}

type GraphErrorResponse struct {
	Code       string                   `json:"code"`
	Message    string                   `json:"message"`
	InnerError GraphInnerError          `json:"innerError"`
	Details    []map[string]interface{} `json:"details"`
}

type GraphInnerError struct {
	RequestID string `json:"request-id"`
	Date      string `json:"date"`
}

type GraphNewUserRequest struct {
	AccountEnabled    bool                 `json:"accountEnabled"`
	City              string               `json:"city,omitempty"`
	CompanyName       string               `json:"companyName,omitempty"`
	Country           string               `json:"country,omitempty"`
	Department        string               `json:"department,omitempty"`
	DisplayName       string               `json:"displayName"`
	EmployeeID        string               `json:"employeeId,omitempty"`
	GivenName         string               `json:"givenName,omitempty"`
	JobTitle          string               `json:"jobTitle,omitempty"`
	MailNickname      string               `json:"mailNickname"`
	MobilePhone       string               `json:"mobilePhone,omitempty"`
	BusinessPhones    []string             `json:"businessPhones,omitempty"`
	OfficeLocation    string               `json:"officeLocation,omitempty"`
	PasswordProfile   GraphPasswordProfile `json:"passwordProfile"`
	PostalCode        string               `json:"postalCode,omitempty"`
	Surname           string               `json:"surname,omitempty"`
	State             string               `json:"state,omitempty"`
	StreetAddress     string               `json:"streetAddress,omitempty"`
	UsageLocation     string               `json:"usageLocation,omitempty"`
	UserPrincipalName string               `json:"userPrincipalName"`
}

type GraphUser struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	UsageLocation     string `json:"usageLocation"`
}

type GraphGroup struct {
	ID              string   `json:"id"`
	DisplayName     string   `json:"displayName"`
	Mail            string   `json:"mail"`
	GroupTypes      []string `json:"groupTypes"`
	MailEnabled     bool     `json:"mailEnabled"`
	SecurityEnabled bool     `json:"securityEnabled"`
}

type GraphGroupsPage struct {
	OdataContext  string       `json:"@odata.context"`
	OdataNextLink string       `json:"@odata.nextLink"`
	Value         []GraphGroup `json:"value"`
}

type GraphMemberRef struct {
	OdataID string `json:"@odata.id"`
}

type GraphSku struct {
	CapabilityStatus string `json:"capabilityStatus"`
	ConsumedUnits    int    `json:"consumedUnits"`
	ID               string `json:"id"`
	PrepaidUnits     struct {
		Enabled   int `json:"enabled"`
		Suspended int `json:"suspended"`
		Warning   int `json:"warning"`
	} `json:"prepaidUnits"`
	SkuID         string `json:"skuId"`
	SkuPartNumber string `json:"skuPartNumber"`
	AppliesTo     string `json:"appliesTo"`
}

type GraphSkusResponse struct {
	OdataContext string     `json:"@odata.context"`
	Value        []GraphSku `json:"value"`
}

type GraphAssignedLicense struct {
	DisabledPlans []string `json:"disabledPlans"`
	SkuID         string   `json:"skuId"`
}

type GraphAssignLicenseRequest struct {
	AddLicenses    []GraphAssignedLicense `json:"addLicenses"`
	RemoveLicenses []string               `json:"removeLicenses"`
}

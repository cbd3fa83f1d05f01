// Package crm holds build-level facts about the CRM module.
package crm

// Version is the released version of the crm module and binary.
const Version = "0.3.0"

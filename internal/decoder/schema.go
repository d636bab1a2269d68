// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

package decoder

// Kind selects the conversion applied to a raw field value.
type Kind int

// Field conversions.
const (
	KindString Kind = iota
	KindInt
	KindDouble
	KindBool
	KindTimestamp
	KindContexts
	KindUnstruct
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindContexts:
		return "contexts"
	case KindUnstruct:
		return "unstruct"
	default:
		return "unknown"
	}
}

// Field is one column of the enriched event record.
type Field struct {
	Name string
	Kind Kind
}

// Column positions of the coordinates used to derive geo_location.
const (
	latitudeIndex  = 22
	longitudeIndex = 23
)

// EnrichedEventSchema is the ordered column layout of an enriched event record.
var EnrichedEventSchema = []Field{
	{"app_id", KindString},
	{"platform", KindString},
	{"etl_tstamp", KindTimestamp},
	{"collector_tstamp", KindTimestamp},
	{"dvce_created_tstamp", KindTimestamp},
	{"event", KindString},
	{"event_id", KindString},
	{"txn_id", KindInt},
	{"name_tracker", KindString},
	{"v_tracker", KindString},
	{"v_collector", KindString},
	{"v_etl", KindString},
	{"user_id", KindString},
	{"user_ipaddress", KindString},
	{"user_fingerprint", KindString},
	{"domain_userid", KindString},
	{"domain_sessionidx", KindInt},
	{"network_userid", KindString},
	{"geo_country", KindString},
	{"geo_region", KindString},
	{"geo_city", KindString},
	{"geo_zipcode", KindString},
	{"geo_latitude", KindDouble},
	{"geo_longitude", KindDouble},
	{"geo_region_name", KindString},
	{"ip_isp", KindString},
	{"ip_organization", KindString},
	{"ip_domain", KindString},
	{"ip_netspeed", KindString},
	{"page_url", KindString},
	{"page_title", KindString},
	{"page_referrer", KindString},
	{"page_urlscheme", KindString},
	{"page_urlhost", KindString},
	{"page_urlport", KindInt},
	{"page_urlpath", KindString},
	{"page_urlquery", KindString},
	{"page_urlfragment", KindString},
	{"refr_urlscheme", KindString},
	{"refr_urlhost", KindString},
	{"refr_urlport", KindInt},
	{"refr_urlpath", KindString},
	{"refr_urlquery", KindString},
	{"refr_urlfragment", KindString},
	{"refr_medium", KindString},
	{"refr_source", KindString},
	{"refr_term", KindString},
	{"mkt_medium", KindString},
	{"mkt_source", KindString},
	{"mkt_term", KindString},
	{"mkt_content", KindString},
	{"mkt_campaign", KindString},
	{"contexts", KindContexts},
	{"se_category", KindString},
	{"se_action", KindString},
	{"se_label", KindString},
	{"se_property", KindString},
	{"se_value", KindString},
	{"unstruct_event", KindUnstruct},
	{"tr_orderid", KindString},
	{"tr_affiliation", KindString},
	{"tr_total", KindDouble},
	{"tr_tax", KindDouble},
	{"tr_shipping", KindDouble},
	{"tr_city", KindString},
	{"tr_state", KindString},
	{"tr_country", KindString},
	{"ti_orderid", KindString},
	{"ti_sku", KindString},
	{"ti_name", KindString},
	{"ti_category", KindString},
	{"ti_price", KindDouble},
	{"ti_quantity", KindInt},
	{"pp_xoffset_min", KindInt},
	{"pp_xoffset_max", KindInt},
	{"pp_yoffset_min", KindInt},
	{"pp_yoffset_max", KindInt},
	{"useragent", KindString},
	{"br_name", KindString},
	{"br_family", KindString},
	{"br_version", KindString},
	{"br_type", KindString},
	{"br_renderengine", KindString},
	{"br_lang", KindString},
	{"br_features_pdf", KindBool},
	{"br_features_flash", KindBool},
	{"br_features_java", KindBool},
	{"br_features_director", KindBool},
	{"br_features_quicktime", KindBool},
	{"br_features_realplayer", KindBool},
	{"br_features_windowsmedia", KindBool},
	{"br_features_gears", KindBool},
	{"br_features_silverlight", KindBool},
	{"br_cookies", KindBool},
	{"br_colordepth", KindString},
	{"br_viewwidth", KindInt},
	{"br_viewheight", KindInt},
	{"os_name", KindString},
	{"os_family", KindString},
	{"os_manufacturer", KindString},
	{"os_timezone", KindString},
	{"dvce_type", KindString},
	{"dvce_ismobile", KindBool},
	{"dvce_screenwidth", KindInt},
	{"dvce_screenheight", KindInt},
	{"doc_charset", KindString},
	{"doc_width", KindInt},
	{"doc_height", KindInt},
	{"tr_currency", KindString},
	{"tr_total_base", KindDouble},
	{"tr_tax_base", KindDouble},
	{"tr_shipping_base", KindDouble},
	{"ti_currency", KindString},
	{"ti_price_base", KindDouble},
	{"base_currency", KindString},
	{"geo_timezone", KindString},
	{"mkt_clickid", KindString},
	{"mkt_network", KindString},
	{"etl_tags", KindString},
	{"dvce_sent_tstamp", KindTimestamp},
	{"refr_domain_userid", KindString},
	{"refr_device_tstamp", KindTimestamp},
	{"derived_contexts", KindContexts},
	{"domain_sessionid", KindString},
	{"derived_tstamp", KindTimestamp},
	{"event_vendor", KindString},
	{"event_name", KindString},
	{"event_format", KindString},
	{"event_version", KindString},
	{"event_fingerprint", KindString},
	{"true_tstamp", KindTimestamp},
}

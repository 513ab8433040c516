// Package localhost serves split and segment changes from a YAML file, for
// running the synchronizers without a control plane.
//
// Example file:
//
//	splits:
//	  - name: new-checkout
//	    treatment: "on"
//	  - name: pricing
//	    defaultTreatment: "off"
//	    conditions:
//	      - matcherGroup:
//	          combiner: AND
//	          matchers:
//	            - matcherType: IN_SEGMENT
//	              userDefinedSegmentMatcherData:
//	                segmentName: beta
//	        partitions:
//	          - treatment: "v2"
//	            size: 100
//	segments:
//	  beta: [alice, bob]
//
// Edit the file and the next synchronization picks the changes up.
package localhost
